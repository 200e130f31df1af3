package server

import "github.com/watt-toolkit/spark/pkg/spark/http1"

// Reply is the response a Handler produces for one request. The worker adds
// the Date, Server, Content-Length, Connection and Keep-Alive headers.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

// Handler produces the reply for a parsed request. The request body has
// already been consumed from the connection when it is called.
type Handler func(req *http1.Request) Reply

// StubHandler answers GET with 200 and an informational page echoing the
// method and target. Every other method gets 501.
func StubHandler(req *http1.Request) Reply {
	if req.Method == "GET" {
		return Reply{
			Status:      http1.StatusOK,
			ContentType: http1.ContentTypeHTML,
			Body:        http1.InfoPage(http1.StatusOK, req.Method, req.Target),
		}
	}
	return Reply{
		Status:      http1.StatusNotImplemented,
		ContentType: http1.ContentTypeHTML,
		Body:        http1.ErrorPage(http1.StatusNotImplemented, "The "+req.Method+" method is not supported by this server."),
	}
}

// errorReply builds the HTML error reply sent for protocol errors and
// capacity rejections.
func errorReply(status int, detail string) Reply {
	return Reply{
		Status:      status,
		ContentType: http1.ContentTypeHTML,
		Body:        http1.ErrorPage(status, detail),
	}
}
