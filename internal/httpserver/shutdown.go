package httpserver

import "time"

// ShutdownTimeout bounds how long in-flight uploads may take to drain.
var ShutdownTimeout = 15 * time.Second
