// Package http exposes a store's catalog as a JSON API.
//
// # Routes
//
//	GET    /api/experiments               list experiments
//	POST   /api/experiments               create an experiment
//	GET    /api/experiments/{name}        get an experiment by name
//	GET    /api/tags                      list tags
//	POST   /api/tags                      create a tag
//	GET    /api/tags/{id}                 get a tag
//	DELETE /api/tags/{id}                 delete a tag
//	GET    /api/runs                      list runs (?experiment=, ?include_archived=, ?limit=)
//	POST   /api/runs                      create a run
//	GET    /api/runs/{hash}               get a run with its tags
//	PUT    /api/runs/{hash}/tags/{id}     tag a run
//	DELETE /api/runs/{hash}/tags/{id}     untag a run
//	POST   /api/cache/refresh             drop cached experiments and tags
//
// Write routes are not mounted when the handler is read-only.
//
// # Usage
//
//	cat, err := catalog.Open(ctx, handle)
//	if err != nil {
//	    return err
//	}
//	handler := http.NewHandler(&http.HandlerConfig{ReadOnly: handle.ReadOnly()}, cat)
//	http.ListenAndServe(":5000", handler.Router())
//
// Errors are returned as JSON objects with an error code and message:
//
//	{"error": "not_found", "message": "Resource not found"}
package http
