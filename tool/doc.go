/*
Package tool turns plain Go functions into tools the remote assistant can call.

A tool is described to the assistant by a name, a description and a JSON
schema of its parameters. The schema is derived from the function signature
when the tool is created and never changes afterwards.

# Parameters

Go does not keep parameter names at runtime, so parameters are named with the
Parameters option. Unnamed parameters are called param0, param1 and so on.
A leading context.Context parameter receives the turn's context and is not
described to the assistant.

Every parameter is advertised as a string, whatever its Go type. Call decodes
the value the assistant sends into the real parameter type, so numbers,
booleans and JSON objects still work when the model quotes them.

A parameter is required unless it has a default:

	lookup := tool.Must(func(city, units string) string { ... },
		tool.Name("lookup"),
		tool.Description("Looks up the weather for a city"),
		tool.Parameters("city", "units"),
		tool.Default("units", "metric"),
		tool.Describe("city", "name of the city"),
	)

# Registry

A Registry records definitions by name. Adding a definition with a name that
is already taken replaces the earlier one. Register adds a function and
returns it unchanged:

	reg := tool.NewRegistry()
	now := tool.Register(reg, time.Now, tool.Name("current_time"))

# Calling

Call decodes the JSON arguments, fills in defaults and invokes the function.
The result is rendered as a string. A returned error, a panic or a missing
required argument is reported as an error.
*/
package tool
