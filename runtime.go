package pljava

import "context"

// Method is a resolved Java entry point, opaque to this package. The jvm
// package's implementation carries the jclass/jmethodID pair.
type Method interface{}

// SetHandle is an opaque reference to a Java object producing the rows of a
// set-returning call.
type SetHandle interface{}

// Runtime drives the JVM. The jvm package provides the real implementation;
// tests substitute a fake, which is why nothing in this package touches JNI
// directly.
//
// Every call may return a *JavaError (an exception escaped the Java code) or
// a *ServerError (the Java code hit a server error that must resurface
// unchanged); other errors are bridge failures.
type Runtime interface {
	// Start boots the JVM with the options assembled from cfg. Calling
	// Start on a started runtime is an error.
	Start(ctx context.Context, cfg *Config) error

	// Resolve binds a static method. signature is the JNI descriptor built
	// from the resolved parameter and return types.
	Resolve(className, methodName, signature string) (Method, error)

	// Call invokes a resolved method. args and the result are the Go-side
	// values of the types package.
	Call(ctx context.Context, m Method, args []interface{}) (interface{}, error)

	// OpenSet invokes a set-returning method and returns the handle its
	// result iterator lives behind.
	OpenSet(ctx context.Context, m Method, args []interface{}) (SetHandle, error)

	// NextOfSet fetches the next row from a set handle. ok is false when
	// the set is exhausted.
	NextOfSet(ctx context.Context, h SetHandle) (value interface{}, ok bool, err error)

	// CloseSet releases a set handle. It must tolerate being the cleanup
	// path of an abandoned scan.
	CloseSet(h SetHandle) error

	// Shutdown destroys the JVM, escalating if it does not come down.
	Shutdown(ctx context.Context) error
}
