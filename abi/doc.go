// Package abi declares the stable contract between the bridge and an
// embedded script engine.
//
// Everything here is plain data or a function slot: the raw value slot
// (Value), type and unit tags, result codes, interned atoms, the asset
// header and its class descriptor, passports and the thunk signatures the
// engine calls back through, and the API entry point table an engine
// publishes. Nothing in this package allocates engine memory.
package abi
