package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// DocPath is where the router serves the embedded OpenAPI document.
const DocPath = "/openapi.yml"

// Handler serves Swagger UI for the ledger API, with operations collapsed
// and deep links enabled so a single endpoint can be shared.
func Handler() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(DocPath),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.UIConfig(map[string]string{
			"tryItOutEnabled": "true",
		}),
	)
}
