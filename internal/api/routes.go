package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.GET("stats").
			To(handler.Stats).
			Doc("Served index metadata").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(StatsResponse{}).
			Returns(200, "OK", StatsResponse{}).
			Returns(503, "Index Not Loaded", ErrorResponse{}))

	ws.
		Route(ws.POST("chat").
			To(handler.Chat).
			Doc("Answer a question about the department").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chat"}).
			Reads(ChatRequest{}).
			Writes(domain.Response{}).
			Returns(200, "Answered, rejected or insufficient context", domain.Response{}).
			Returns(400, "Bad Request", ErrorResponse{}).
			Returns(503, "Service Unavailable", domain.Response{}))

	ws.
		Route(ws.POST("chat/batch").
			To(handler.ChatBatch).
			Doc("Answer several questions").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chat"}).
			Reads(BatchRequest{}).
			Writes(BatchResponse{}).
			Returns(200, "OK", BatchResponse{}).
			Returns(400, "Bad Request", ErrorResponse{}))

	container.Add(ws)
}

// RegisterOpenAPI serves the OpenAPI document of every registered service.
func RegisterOpenAPI(container *restful.Container) {
	config := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/api/v1/openapi.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(config))
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Department QA API",
			Description: "Answers questions about the department from its indexed document",
			Version:     Version,
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "chat", Description: "Question answering"}},
	}
}
