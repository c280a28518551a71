package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/sundayschool/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=name,-createdAt` into DB orderings.
// Only the listed columns are kept; clients may name them in camelCase or snake_case.
func (ord *Ordering) Bind(ctx echo.Context, columns ...string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		for _, col := range columns {
			if field == col || field == strmangle.CamelCase(col) {
				ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: col, Ascending: !descending})
				break
			}
		}
	}
}

// paramID parses the path parameter `name` as a row id.
// Malformed ids cannot match a row, so they are reported as not found.
func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}
