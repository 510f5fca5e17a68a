package app

import "net/http"

type HealthResponse struct {
	Status  string `json:"status"`
	Env     string `json:"env"`
	Version string `json:"version"`
}

func (app *Application) GetHealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "available",
		Env:     app.config.Env,
		Version: version,
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
