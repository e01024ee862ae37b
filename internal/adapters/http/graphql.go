package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/yash1732/gigguard/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	poiType := graphql.NewObject(graphql.ObjectConfig{
		Name: "EmergencyContact",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"latitude":    &graphql.Field{Type: graphql.Float},
			"longitude":   &graphql.Field{Type: graphql.Float},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"phone":       &graphql.Field{Type: graphql.String},
		},
	})

	workerLocationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "WorkerLocation",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
			"address":   &graphql.Field{Type: graphql.String},
		},
	})

	bundleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "EmergencyBundle",
		Fields: graphql.Fields{
			"sos_id":             &graphql.Field{Type: graphql.String},
			"worker_id":          &graphql.Field{Type: graphql.String},
			"timestamp":          &graphql.Field{Type: graphql.DateTime},
			"worker_location":    &graphql.Field{Type: workerLocationType},
			"emergency_type":     &graphql.Field{Type: graphql.String},
			"message":            &graphql.Field{Type: graphql.String},
			"nearest_hospitals":  &graphql.Field{Type: graphql.NewList(poiType)},
			"nearest_police":     &graphql.Field{Type: graphql.NewList(poiType)},
			"nearest_pharmacies": &graphql.Field{Type: graphql.NewList(poiType)},
			"emergency_number":   &graphql.Field{Type: graphql.String},
			"status":             &graphql.Field{Type: graphql.String},
			"processing_time_ms": &graphql.Field{Type: graphql.Float},
		},
	})

	sosEventType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SOSEvent",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"worker_id":       &graphql.Field{Type: graphql.String},
			"location":        &graphql.Field{Type: geoPointType},
			"emergency_type":  &graphql.Field{Type: graphql.String},
			"status":          &graphql.Field{Type: graphql.String},
			"bundle":          &graphql.Field{Type: bundleType},
			"created_at":      &graphql.Field{Type: graphql.DateTime},
			"acknowledged_at": &graphql.Field{Type: graphql.DateTime},
			"escalated_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"emergencyContacts": &graphql.Field{
				Type:        graphql.NewList(poiType),
				Description: "Nearest emergency resources of one category",
				Args: graphql.FieldConfigArgument{
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"category": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "hospital"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					category, ok := domain.ParseCategory(p.Args["category"].(string))
					if !ok {
						return nil, &domain.ValidationError{Field: "category", Reason: "must be one of hospital, police, pharmacy"}
					}
					return deps.SOS.Nearby(p.Context, category, origin)
				},
			},
			"sosEvent": &graphql.Field{
				Type:        sosEventType,
				Description: "Get a stored SOS by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.SOS.Get(p.Context, p.Args["id"].(string))
				},
			},
			"sosByWorker": &graphql.Field{
				Type:        graphql.NewList(sosEventType),
				Description: "Recent SOS events of a worker, newest first",
				Args: graphql.FieldConfigArgument{
					"worker_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					events, _, err := deps.SOS.ListByWorker(p.Context, p.Args["worker_id"].(string), 0, p.Args["limit"].(int))
					return events, err
				},
			},
			"activeSOSNear": &graphql.Field{
				Type:        graphql.NewList(sosEventType),
				Description: "Unacknowledged SOS events near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 5000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.SOS.ActiveNear(p.Context, origin, p.Args["radius"].(float64), p.Args["limit"].(int))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"acknowledgeSOS": &graphql.Field{
				Type:        sosEventType,
				Description: "Acknowledge an SOS and stop its escalation",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.SOS.Acknowledge(p.Context, p.Args["id"].(string))
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
