// Package handler provides the HTTP endpoints of the job board server.
//
// All handlers follow a consistent pattern:
//
//   - Constructor function (NewXxxHandler) accepts the dependencies as
//     interfaces
//   - Methods handle specific HTTP endpoints
//   - Response helpers from response.go standardize output format
//
// The surface is deliberately small: job board reads feed the event
// tracker, and the signup/invitation endpoints feed the notifications
// queue.
package handler
