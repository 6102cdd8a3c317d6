// Package whailtest provides test doubles for code that uses the whail
// engine. It follows the standard library pattern (like net/http/httptest)
// of providing a testable fake alongside the real package.
//
// FakeAPIClient is a function-field fake of the Docker client.APIClient used
// to unit test whail.Engine itself. FakeRuntime is an in-memory
// whail.Runtime for code built on top of the engine, such as clusters and
// CLI commands.
//
// Usage:
//
//	engine, fake := whailtest.NewEngine(t)
//	fake.ContainerStartFn = func(ctx context.Context, id string, opts container.StartOptions) error {
//	    return nil
//	}
//
//	rt := whailtest.NewFakeRuntime()
//	rt.ExecFn = func(id string, argv []string) (whail.ExecResult, error) { ... }
package whailtest
