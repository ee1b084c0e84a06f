// Package web serves the browser front-end.
//
// Each browser is bound to its own app.App through a session cookie. Pages
// are rendered server side from app.View; actions are plain form posts that
// redirect back to the page, and a websocket at /ws tells the page to reload
// whenever its session changes, for example when a list finishes loading.
// Downloads link straight to the backend's download endpoint.
package web
