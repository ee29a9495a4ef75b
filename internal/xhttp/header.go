package xhttp

import "net/http"

const (
	Accept        = "Accept"
	Authorization = "Authorization"
	ContentType   = "Content-Type"
	UserAgent     = "User-Agent"
)

const (
	ApplicationJSON = "application/json"
	FormURLEncoded  = "application/x-www-form-urlencoded"
)

func SetBearer(req *http.Request, accessToken string) {
	req.Header.Set(Authorization, "Bearer "+accessToken)
}

func SetContentTypeForm(req *http.Request) {
	req.Header.Set(ContentType, FormURLEncoded)
}

func SetAcceptJSON(req *http.Request) {
	req.Header.Set(Accept, ApplicationJSON)
}
