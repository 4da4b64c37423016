package medaware

import (
	"net/http"

	"github.com/go-chi/render"
)

const StatusSuccess = "success"

// Envelope is a free-form JSON object response.
type Envelope map[string]any

func (e Envelope) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// Success builds an envelope carrying "status": "success" plus the given pairs.
func Success(kv ...any) Envelope {
	env := Envelope{"status": StatusSuccess}

	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}

		env[key] = kv[i+1]
	}

	return env
}

// RenderDTOs converts a list of resources into their DTOs.
func RenderDTOs[M Resource](items []M) []render.Renderer {
	dtos := make([]render.Renderer, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, item.ToDTO())
	}

	return dtos
}
