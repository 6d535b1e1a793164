package http

// Header names (canonical form)
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderAuthorization = "Authorization"
	HeaderHost          = "Host"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"

	// HeaderRequestType is an editor marker that is never sent.
	HeaderRequestType = "X-Request-Type"
)

// MIME types
const (
	MIMEApplicationJSON           = "application/json"
	MIMEApplicationXML            = "application/xml"
	MIMEApplicationFormURLEncoded = "application/x-www-form-urlencoded"
	MIMETextPlain                 = "text/plain"
	MIMETextHTML                  = "text/html"
	MIMETextCSV                   = "text/csv"
	MIMEOctetStream               = "application/octet-stream"
)

// Authentication schemes
const (
	AuthSchemeBasic  = "Basic"
	AuthSchemeBearer = "Bearer"
)

const DefaultUserAgent = "httpipe"
