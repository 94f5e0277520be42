package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

// Envelope is the legacy AJAX response contract kept for grid and form clients.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// DataTableEnvelope mirrors the DataTables server-side protocol payload.
type DataTableEnvelope struct {
	Draw            int         `json:"draw"`
	RecordsTotal    int         `json:"recordsTotal"`
	RecordsFiltered int         `json:"recordsFiltered"`
	Data            interface{} `json:"data"`
}

// OK sends a success envelope.
func OK(c *gin.Context, data interface{}) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// OKMessage sends a success envelope with a user-facing message.
func OKMessage(c *gin.Context, message string, data interface{}) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	noStore(c)
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Error converts the error to the envelope. Validation and duplicate failures keep
// HTTP 200 with success:false, matching the legacy AJAX contract; everything else
// carries its mapped status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	status := appErr.Status
	if appErr.Code == appErrors.ErrValidation.Code || appErr.Code == appErrors.ErrDuplicate.Code {
		status = http.StatusOK
	}
	c.JSON(status, Envelope{Success: false, Message: appErr.Message})
}

// DataTable sends a DataTables payload.
func DataTable(c *gin.Context, draw, total, filtered int, data interface{}) {
	noStore(c)
	c.JSON(http.StatusOK, DataTableEnvelope{Draw: draw, RecordsTotal: total, RecordsFiltered: filtered, Data: data})
}

// DataTableError degrades to a zero-count payload so grids render an empty page.
func DataTableError(c *gin.Context, draw int) {
	noStore(c)
	c.JSON(http.StatusOK, DataTableEnvelope{Draw: draw, Data: []interface{}{}})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
