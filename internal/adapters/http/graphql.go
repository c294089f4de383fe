package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/loopwalk/internal/core/domain"
)

// stringer resolves fields backed by named string types, which the default
// resolver would hand to the String scalar unconverted.
func stringer[T ~string](get func(any) (T, bool)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		v, ok := get(p.Source)
		if !ok {
			return nil, nil
		}
		return string(v), nil
	}
}

// buildSchema creates the GraphQL schema wired to the loop service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	attemptType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchAttempt",
		Fields: graphql.Fields{
			"index":       &graphql.Field{Type: graphql.Int},
			"bearing_deg": &graphql.Field{Type: graphql.Float},
			"radius_m":    &graphql.Field{Type: graphql.Float},
			"waypoints":   &graphql.Field{Type: graphql.NewList(coordinateType)},
			"outcome": &graphql.Field{
				Type: graphql.String,
				Resolve: stringer(func(src any) (domain.AttemptOutcome, bool) {
					a, ok := src.(domain.SearchAttempt)
					return a.Outcome, ok
				}),
			},
			"distance_m": &graphql.Field{Type: graphql.Float},
			"error":      &graphql.Field{Type: graphql.String},
		},
	})

	loopRouteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LoopRoute",
		Fields: graphql.Fields{
			"search_id": &graphql.Field{Type: graphql.String},
			"status": &graphql.Field{
				Type: graphql.String,
				Resolve: stringer(func(src any) (domain.SearchStatus, bool) {
					r, ok := src.(*domain.LoopRoute)
					if !ok || r == nil {
						return "", false
					}
					return r.Status, true
				}),
			},
			"strategy":     &graphql.Field{Type: graphql.String},
			"start":        &graphql.Field{Type: coordinateType},
			"target_km":    &graphql.Field{Type: graphql.Float},
			"distance_km":  &graphql.Field{Type: graphql.Float},
			"coordinates":  &graphql.Field{Type: graphql.NewList(coordinateType)},
			"attempts":     &graphql.Field{Type: graphql.NewList(attemptType)},
			"generated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	strategyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Strategy",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.String},
			"waypoints":   &graphql.Field{Type: graphql.Int},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"strategies": &graphql.Field{
				Type:        graphql.NewList(strategyType),
				Description: "List waypoint strategies",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Loops.Strategies(), nil
				},
			},
			"loopRoute": &graphql.Field{
				Type:        loopRouteType,
				Description: "Generate a loop walking route of roughly distanceKm kilometers",
				Args: graphql.FieldConfigArgument{
					"distanceKm":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat":         &graphql.ArgumentConfig{Type: graphql.Float},
					"lon":         &graphql.ArgumentConfig{Type: graphql.Float},
					"strategy":    &graphql.ArgumentConfig{Type: graphql.String},
					"seed":        &graphql.ArgumentConfig{Type: graphql.Int},
					"tolerance":   &graphql.ArgumentConfig{Type: graphql.Float},
					"maxAttempts": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req, err := loopRequestFromArgs(p.Args)
					if err != nil {
						return nil, err
					}
					return deps.Loops.Generate(p.Context, req)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func loopRequestFromArgs(args map[string]interface{}) (domain.LoopRequest, error) {
	var p loopParams
	p.DistanceKm, _ = args["distanceKm"].(float64)
	if v, ok := args["lat"].(float64); ok {
		p.Lat = &v
	}
	if v, ok := args["lon"].(float64); ok {
		p.Lon = &v
	}
	p.Strategy, _ = args["strategy"].(string)
	p.Tolerance, _ = args["tolerance"].(float64)
	p.MaxAttempts, _ = args["maxAttempts"].(int)
	if v, ok := args["seed"].(int); ok {
		if v < 0 {
			return domain.LoopRequest{}, fmt.Errorf("%w: seed must be non-negative", domain.ErrInvalidRequest)
		}
		s := uint64(v)
		p.Seed = &s
	}
	return p.request()
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
