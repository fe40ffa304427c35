package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type customerRow struct {
	ID        int64  `json:"id,string"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Status    string `json:"status"`
	Verified  bool   `json:"verified"`
	LastLogin string `json:"last_login"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) listCustomers(c echo.Context) error {
	page, perPage := parsePagination(c)
	rows, total, err := h.customers.List(c.Request().Context(), page, perPage)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", err.Error())
	}
	// password hashes and tokens stay out of the response
	out := make([]customerRow, 0, len(rows))
	for _, cu := range rows {
		out = append(out, customerRow{
			ID: cu.ID, Email: cu.Email, Username: cu.Username,
			Status: cu.Status, Verified: cu.Verified,
			LastLogin: cu.LastLogin.Format("2006-01-02 15:04:05"),
			CreatedAt: cu.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return paged(c, out, total, page, perPage)
}
