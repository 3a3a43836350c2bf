// Package shutdown coordinates graceful termination of the gateway.
//
// Components register named hooks as they start; on SIGINT, SIGTERM or
// an explicit Trigger the hooks run in reverse registration order under
// a shared deadline.
//
//	h := shutdown.NewHandler(10*time.Second, log)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
