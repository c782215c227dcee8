package config

// IsTestMode indicates if the program is running in test mode.
// When set, auto-numbered type variables print as "T?" so expected
// output does not depend on allocation order.
var IsTestMode = false

// Built-in type names
const (
	IntTypeName    = "int"
	FloatTypeName  = "float"
	StringTypeName = "string"
	CharTypeName   = "char"
)

// Built-in type constructor names recognized by the fixture loader.
const (
	PredTypeName = "pred"
	FuncTypeName = "func"
)
