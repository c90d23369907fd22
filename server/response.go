package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/voicediag/errors"
)

// DataResponse is the envelope for successful responses.
type DataResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta carries pagination details for list responses.
type Meta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// RespondOK writes a 200 with the data envelope.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondCreated writes a 201 with the data envelope.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}

// RespondAccepted writes a 202 with the data envelope.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, DataResponse{Data: data})
}

// RespondList writes a 200 with pagination metadata.
func RespondList(c *gin.Context, data interface{}, page, pageSize int, total int64) {
	c.JSON(http.StatusOK, DataResponse{
		Data: data,
		Meta: &Meta{Page: page, PageSize: pageSize, Total: total},
	})
}

// RespondWithError maps any error to the structured error body. Errors
// that are not AppErrors are wrapped as internal.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}
