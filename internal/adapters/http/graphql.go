package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/presentation"
	"github.com/crimestat/crimestat/internal/core/usecases"
)

// categoryCount is one row of a statistics summary in GraphQL.
type categoryCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

func summaryRows(s domain.Summary) []categoryCount {
	rows := make([]categoryCount, 0, len(s.Order))
	for _, k := range s.Order {
		rows = append(rows, categoryCount{
			Key:   k,
			Label: domain.FormatCategory(k),
			Color: domain.CategoryColor(k, domain.ChartFallbackColor),
			Count: s.PerCategory[k],
		})
	}
	return rows
}

func floatArg(p graphql.ResolveParams, name string) float64 {
	f, _ := p.Args[name].(float64)
	return f
}

func intArg(p graphql.ResolveParams, name string) int {
	n, _ := p.Args[name].(int)
	return n
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	actionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Action",
		Fields: graphql.Fields{
			"label": &graphql.Field{Type: graphql.String},
			"href":  &graphql.Field{Type: graphql.String},
		},
	})

	bannerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Banner",
		Fields: graphql.Fields{
			"message": &graphql.Field{Type: graphql.String},
			"action":  &graphql.Field{Type: actionType},
		},
	})

	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"key":   &graphql.Field{Type: graphql.String},
			"label": &graphql.Field{Type: graphql.String},
			"color": &graphql.Field{Type: graphql.String},
		},
	})

	categoryCountType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CategoryCount",
		Fields: graphql.Fields{
			"key":   &graphql.Field{Type: graphql.String},
			"label": &graphql.Field{Type: graphql.String},
			"color": &graphql.Field{Type: graphql.String},
			"count": &graphql.Field{Type: graphql.Int},
		},
	})

	monthType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Month",
		Fields: graphql.Fields{
			"index": &graphql.Field{Type: graphql.Int},
			"value": &graphql.Field{Type: graphql.String},
			"label": &graphql.Field{Type: graphql.String},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.Float},
			"position": &graphql.Field{Type: geoPointType},
			"category": &graphql.Field{Type: graphql.String},
			"color":    &graphql.Field{Type: graphql.String},
			"hue":      &graphql.Field{Type: graphql.Int},
			"tint":     &graphql.Field{Type: graphql.Int},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":                  &graphql.Field{Type: graphql.String},
			"phase":               &graphql.Field{Type: graphql.String},
			"draw_button":         &graphql.Field{Type: graphql.String},
			"month":               &graphql.Field{Type: graphql.String},
			"month_index":         &graphql.Field{Type: graphql.Int},
			"mode":                &graphql.Field{Type: graphql.String},
			"status":              &graphql.Field{Type: graphql.String},
			"loading":             &graphql.Field{Type: graphql.String},
			"banner":              &graphql.Field{Type: bannerType},
			"records":             &graphql.Field{Type: graphql.Int},
			"generation":          &graphql.Field{Type: graphql.Float},
			"area":                &graphql.Field{Type: graphql.String},
			"can_view_statistics": &graphql.Field{Type: graphql.Boolean},
			"markers": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "Markers of the current record set",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, _ := p.Source.(usecases.SessionView)
					return deps.Maps.Markers(p.Context, v.ID)
				},
			},
		},
	})

	statisticsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Statistics",
		Fields: graphql.Fields{
			"poly":   &graphql.Field{Type: graphql.String},
			"month":  &graphql.Field{Type: graphql.String},
			"status": &graphql.Field{Type: graphql.String},
			"banner": &graphql.Field{Type: bannerType},
			"total": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, _ := p.Source.(usecases.StatisticsView)
					return v.Summary.Total, nil
				},
			},
			"categories": &graphql.Field{
				Type: graphql.NewList(categoryCountType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, _ := p.Source.(usecases.StatisticsView)
					return summaryRows(v.Summary), nil
				},
			},
			"recap": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, _ := p.Source.(usecases.StatisticsView)
					if v.Recap.Title == "" {
						return []string{}, nil
					}
					return append([]string{v.Recap.Title, v.Recap.Total}, v.Recap.Lines...), nil
				},
			},
		},
	})

	queryLogType := graphql.NewObject(graphql.ObjectConfig{
		Name: "QueryLogEntry",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Float},
			"month":       &graphql.Field{Type: graphql.String},
			"poly":        &graphql.Field{Type: graphql.String},
			"status":      &graphql.Field{Type: graphql.String},
			"records":     &graphql.Field{Type: graphql.Int},
			"duration_ms": &graphql.Field{Type: graphql.Float},
			"cached":      &graphql.Field{Type: graphql.Boolean},
		},
	})

	sessionArgs := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"categories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "Known crime categories and their colours",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					keys := domain.CategoryKeys()
					out := make([]Category, 0, len(keys))
					for _, k := range keys {
						out = append(out, Category{Key: k, Label: domain.FormatCategory(k), Color: domain.CategoryColor(k, domain.MarkerFallbackColor)})
					}
					return out, nil
				},
			},
			"months": &graphql.Field{
				Type:        graphql.NewList(monthType),
				Description: "Month dropdown options",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return presentation.MonthOptions(), nil
				},
			},
			"statistics": &graphql.Field{
				Type:        statisticsType,
				Description: "Per-category statistics of an area for a month",
				Args: graphql.FieldConfigArgument{
					"poly":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"legend_height": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, err := deps.Statistics.Compute(p.Context, p.Args["poly"].(string), p.Args["date"].(string), intArg(p, "legend_height"))
					if err != nil && v.Banner == nil {
						return nil, err
					}
					return v, nil
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current state of a map session",
				Args:        sessionArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.Snapshot(p.Context, p.Args["id"].(string))
				},
			},
			"recentQueries": &graphql.Field{
				Type:        graphql.NewList(queryLogType),
				Description: "Recent upstream fetch outcomes",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.QueryLog == nil {
						return []domain.QueryLogEntry{}, nil
					}
					return deps.QueryLog.Recent(p.Context, intArg(p, "limit"), intArg(p, "offset"))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createSession": &graphql.Field{
				Type: sessionType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.Create(p.Context), nil
				},
			},
			"deleteSession": &graphql.Field{
				Type: graphql.Boolean,
				Args: sessionArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Maps.Delete(p.Context, p.Args["id"].(string)); err != nil {
						return false, err
					}
					return true, nil
				},
			},
			"toggleDraw": &graphql.Field{
				Type: sessionType,
				Args: sessionArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.ToggleDraw(p.Context, p.Args["id"].(string))
				},
			},
			"click": &graphql.Field{
				Type:        sessionType,
				Description: "Forward a map click; x/y and the viewport enable pixel snapping",
				Args: graphql.FieldConfigArgument{
					"id":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"x":          &graphql.ArgumentConfig{Type: graphql.Float},
					"y":          &graphql.ArgumentConfig{Type: graphql.Float},
					"center_lat": &graphql.ArgumentConfig{Type: graphql.Float},
					"center_lon": &graphql.ArgumentConfig{Type: graphql.Float},
					"zoom":       &graphql.ArgumentConfig{Type: graphql.Float},
					"width":      &graphql.ArgumentConfig{Type: graphql.Int},
					"height":     &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in := usecases.ClickInput{
						LatLng:    domain.GeoPoint{Lat: floatArg(p, "lat"), Lon: floatArg(p, "lon")},
						Container: domain.ScreenPoint{X: floatArg(p, "x"), Y: floatArg(p, "y")},
						Viewport: domain.Viewport{
							Center: domain.GeoPoint{Lat: floatArg(p, "center_lat"), Lon: floatArg(p, "center_lon")},
							Zoom:   floatArg(p, "zoom"),
							Width:  intArg(p, "width"),
							Height: intArg(p, "height"),
						},
					}
					return deps.Maps.PointerClick(p.Context, p.Args["id"].(string), in)
				},
			},
			"selectMonth": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"month": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.SelectMonth(p.Context, p.Args["id"].(string), intArg(p, "month"))
				},
			},
			"setMode": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"mode": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.SetRenderMode(p.Context, p.Args["id"].(string), domain.RenderMode(p.Args["mode"].(string)))
				},
			},
			"startTrend": &graphql.Field{
				Type:        graphql.String,
				Description: "Start a 12-month trend and return its id",
				Args: graphql.FieldConfigArgument{
					"poly": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Trends.Start(p.Context, p.Args["poly"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
