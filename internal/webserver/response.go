package webserver

import (
	"github.com/labstack/echo/v4"
)

// RestResult is the uniform response envelope.
type RestResult struct {
	Code   string      `json:"code"`
	Msg    string      `json:"msg,omitempty"`
	Detail interface{} `json:"detail,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// PageResult wraps a paged listing.
type PageResult struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// OK responds 200 with data.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(200, RestResult{Code: "OK", Data: data})
}

// Fail responds with an error envelope.
func Fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	return c.JSON(status, RestResult{Code: code, Msg: msg, Detail: detail})
}

// Paged responds 200 with a page of rows.
func Paged(c echo.Context, items interface{}, total int64, page, pageSize int) error {
	return c.JSON(200, RestResult{Code: "OK", Data: PageResult{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}})
}
