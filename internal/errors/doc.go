// Package errors provides structured, actionable error messages for harmonycn.
//
// Every failure that reaches the user is a *Error carrying a registered code.
// The code identifies the failure class so callers can branch on it, and the
// template behind it supplies a short message and a longer explanation.
//
// # Error Categories
//
// Errors are organized into categories:
//   - registry: the component registry could not be reached or returned bad data
//   - validation: a payload or input did not match the expected shape
//   - auth: the device authorization handshake failed
//   - publish: a call against the Git hosting API failed
//   - config: components.json is missing or invalid
//   - cli: command line usage errors
//
// # Error Codes
//
//	E100  registry unreachable
//	E101  validation error
//	E110  auth transport error
//	E111  auth denied
//	E112  auth expired
//	E120  publish error
//	E130  config missing
//	E131  config invalid
//	E140  component not found
//
// # Usage
//
//	err := errors.New(errors.CodeRegistryUnreachable).
//	    WithDetail("GET https://example.com/index.json: status 502").
//	    WithSuggestion("Check the registry URL in components.json")
//
//	if errors.Is(err, errors.Code(errors.CodeRegistryUnreachable)) {
//	    // ...
//	}
//
//	fmt.Fprint(os.Stderr, err.Format())
package errors
