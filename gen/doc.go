// Package gen expands annotated Go declarations into asset and module
// glue.
//
// Markers go in doc comments:
//
//	//som:asset [Name]   struct type exposed as an asset; fields tagged
//	                     som:"name" become properties, exported methods
//	                     become method thunks
//	//som:module         struct type whose exported methods become module
//	                     functions (an xmod.ExplicitRegistrar)
//	//som:func           top-level function added to SOMFuncs
//	//som:skip           method left out
//	//som:name alias     method exposed under alias
//
// A field tag of som:"name,readonly" omits the setter; som:"-" hides the
// field. Output for foo.go is written to foo_som.go and formatted with
// goimports. Methods named SOM* that exist already are never generated.
//
// Every generated method checks its argument count against the declared
// parameter count, converts each argument (strings through conv.AsString,
// asset pointers through som.FromValue, everything else through
// conv.FromValue) and converts the result with som.ToValue.
package gen
