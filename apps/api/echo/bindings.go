package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/registry"
)

var (
	orderingParam = "ordering"
	searchParam   = "search"

	// query params narrowing a record list down to a field value
	matchParams = []string{"class_id", "section_id", "student_id", "subject_id", "parent_id", "status", "exam_type", "date"}
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	ord.Orderings = core.ParseOrderings(ctx.QueryParam(orderingParam))
}

// bindFilter reads a registry.Filter from the query string,
// eg. `?search=ada&class_id=c-1&ordering=-created_at`.
func bindFilter(ctx echo.Context) registry.Filter {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	filter := registry.Filter{
		Search:    core.CleanString(ctx.QueryParam(searchParam)),
		Orderings: ordering.Orderings,
	}
	for _, param := range matchParams {
		if val := core.CleanString(ctx.QueryParam(param)); val != "" {
			if filter.Match == nil {
				filter.Match = make(map[string]string)
			}
			filter.Match[param] = val
		}
	}
	return filter
}
