// Package wasmhost exposes native assets to WebAssembly guests through a
// wazero host module.
//
// Each instantiation keeps its own table of granted handles. The host
// grants an asset with Host.Grant, which takes one reference for the guest;
// the imports reject any handle not granted to the instance, and release
// only drops references the guest itself holds. Host.Close returns what
// the guest still holds.
//
//	host, err := wasmhost.Instantiate(ctx, rt)
//	handle, err := host.Grant(obj.Thing())
//
// Guests refer to assets by that handle and exchange
// arguments and results as 16 byte raw value records in their own memory
// (T u32, U u32, D u64, little endian). Only scalar kinds cross the
// boundary; strings, containers and assets stay on the host side.
//
//	(import "som" "add_ref"      (func (param i32) (result i32)))
//	(import "som" "release"      (func (param i32) (result i32)))
//	(import "som" "method_count" (func (param i32) (result i32)))
//	(import "som" "method_index" (func (param i32 i32 i32) (result i32)))
//	(import "som" "call_method"  (func (param i32 i32 i32 i32 i32) (result i32)))
//
// call_method returns StatusOK and writes the result record, or a negative
// status.
package wasmhost
