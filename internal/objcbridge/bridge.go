// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package objcbridge

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
	"github.com/go-webgpu/goffi/types"
)

var (
	objcLib unsafe.Pointer

	symObjcMsgSend      unsafe.Pointer
	symObjcMsgSendFpret unsafe.Pointer
	symObjcMsgSendStret unsafe.Pointer
	symObjcGetClass     unsafe.Pointer
	symSelRegisterName  unsafe.Pointer

	cifGetClass    types.CallInterface
	cifSelRegister types.CallInterface
)

var selectorCache sync.Map

type objcArg struct {
	typ       *types.TypeDescriptor
	ptr       unsafe.Pointer
	keepAlive any
}

// Struct type descriptors for Metal's fixed-layout value types. Order and
// member widths must match the C struct layout exactly.
var (
	ClearColorType = &types.TypeDescriptor{
		Kind: types.StructType,
		Members: []*types.TypeDescriptor{
			types.DoubleTypeDescriptor, types.DoubleTypeDescriptor,
			types.DoubleTypeDescriptor, types.DoubleTypeDescriptor,
		},
	}
	ViewportType = &types.TypeDescriptor{
		Kind: types.StructType,
		Members: []*types.TypeDescriptor{
			types.DoubleTypeDescriptor, types.DoubleTypeDescriptor,
			types.DoubleTypeDescriptor, types.DoubleTypeDescriptor,
			types.DoubleTypeDescriptor, types.DoubleTypeDescriptor,
		},
	}
	ScissorRectType = &types.TypeDescriptor{
		Kind: types.StructType,
		Members: []*types.TypeDescriptor{
			types.UInt64TypeDescriptor, types.UInt64TypeDescriptor,
			types.UInt64TypeDescriptor, types.UInt64TypeDescriptor,
		},
	}
	OriginType = &types.TypeDescriptor{
		Kind: types.StructType,
		Members: []*types.TypeDescriptor{
			types.UInt64TypeDescriptor, types.UInt64TypeDescriptor, types.UInt64TypeDescriptor,
		},
	}
	SizeType = &types.TypeDescriptor{
		Kind: types.StructType,
		Members: []*types.TypeDescriptor{
			types.UInt64TypeDescriptor, types.UInt64TypeDescriptor, types.UInt64TypeDescriptor,
		},
	}
	RangeType = &types.TypeDescriptor{
		Kind: types.StructType,
		Members: []*types.TypeDescriptor{
			types.UInt64TypeDescriptor, types.UInt64TypeDescriptor,
		},
	}
)

// Init loads libobjc and prepares the call interfaces needed by GetClass
// and RegisterSelector. It must be called once before any other function
// in this package.
func Init() error {
	var err error

	objcLib, err = ffi.LoadLibrary("/usr/lib/libobjc.A.dylib")
	if err != nil {
		return fmt.Errorf("objcbridge: failed to load libobjc: %w", err)
	}

	if symObjcMsgSend, err = ffi.GetSymbol(objcLib, "objc_msgSend"); err != nil {
		return fmt.Errorf("objcbridge: objc_msgSend not found: %w", err)
	}
	if symObjcMsgSendFpret, err = ffi.GetSymbol(objcLib, "objc_msgSend_fpret"); err != nil {
		symObjcMsgSendFpret = nil
	}
	if symObjcMsgSendStret, err = ffi.GetSymbol(objcLib, "objc_msgSend_stret"); err != nil {
		symObjcMsgSendStret = nil
	}
	if symObjcGetClass, err = ffi.GetSymbol(objcLib, "objc_getClass"); err != nil {
		return fmt.Errorf("objcbridge: objc_getClass not found: %w", err)
	}
	if symSelRegisterName, err = ffi.GetSymbol(objcLib, "sel_registerName"); err != nil {
		return fmt.Errorf("objcbridge: sel_registerName not found: %w", err)
	}

	if err := prepareCallInterfaces(); err != nil {
		return err
	}
	initBlockSupport()
	return nil
}

func prepareCallInterfaces() error {
	if err := ffi.PrepareCallInterface(&cifGetClass, types.DefaultCall,
		types.PointerTypeDescriptor, []*types.TypeDescriptor{types.PointerTypeDescriptor}); err != nil {
		return fmt.Errorf("objcbridge: failed to prepare objc_getClass: %w", err)
	}
	if err := ffi.PrepareCallInterface(&cifSelRegister, types.DefaultCall,
		types.PointerTypeDescriptor, []*types.TypeDescriptor{types.PointerTypeDescriptor}); err != nil {
		return fmt.Errorf("objcbridge: failed to prepare sel_registerName: %w", err)
	}
	return nil
}

// GetClass returns the Class for a given name.
func GetClass(name string) Class {
	cname := append([]byte(name), 0)
	ptr := uintptr(unsafe.Pointer(&cname[0]))
	var result Class
	args := [1]unsafe.Pointer{unsafe.Pointer(&ptr)}
	_ = ffi.CallFunction(&cifGetClass, symObjcGetClass, unsafe.Pointer(&result), args[:])
	return result
}

// RegisterSelector registers and returns a selector, caching it by name.
func RegisterSelector(name string) SEL {
	if cached, ok := selectorCache.Load(name); ok {
		return cached.(SEL)
	}
	cname := append([]byte(name), 0)
	ptr := uintptr(unsafe.Pointer(&cname[0]))
	var result SEL
	args := [1]unsafe.Pointer{unsafe.Pointer(&ptr)}
	_ = ffi.CallFunction(&cifSelRegister, symSelRegisterName, unsafe.Pointer(&result), args[:])
	selectorCache.Store(name, result)
	return result
}

// Sel is a shorthand for RegisterSelector.
func Sel(name string) SEL { return RegisterSelector(name) }

func argPointer(val uintptr) objcArg {
	v := val
	return objcArg{typ: types.PointerTypeDescriptor, ptr: unsafe.Pointer(&v), keepAlive: &v}
}

// Arg is an opaque, ordered objc_msgSend argument built by Ptr/U64/I64/BoolArg/Struct.
type Arg struct{ a objcArg }

// Ptr wraps a pointer-sized argument (an object id, a selector, a raw C pointer).
func Ptr(v uintptr) Arg { return Arg{argPointer(v)} }

// U64 wraps a uint64 argument.
func U64(v uint64) Arg {
	vv := v
	return Arg{objcArg{typ: types.UInt64TypeDescriptor, ptr: unsafe.Pointer(&vv), keepAlive: &vv}}
}

// I64 wraps an int64 argument.
func I64(v int64) Arg {
	vv := v
	return Arg{objcArg{typ: types.SInt64TypeDescriptor, ptr: unsafe.Pointer(&vv), keepAlive: &vv}}
}

// BoolArg wraps a BOOL argument.
func BoolArg(v bool) Arg {
	var b uint8
	if v {
		b = 1
	}
	return Arg{objcArg{typ: types.UInt8TypeDescriptor, ptr: unsafe.Pointer(&b), keepAlive: &b}}
}

// Struct wraps an arbitrary fixed-layout value (MTLOrigin, MTLClearColor,
// ...) using its matching TypeDescriptor (see the *Type variables above).
func Struct[T any](val T, td *types.TypeDescriptor) Arg {
	v := val
	return Arg{objcArg{typ: td, ptr: unsafe.Pointer(&v), keepAlive: &v}}
}

func pointerArgs(args []uintptr) []objcArg {
	out := make([]objcArg, len(args))
	for i, arg := range args {
		out[i] = argPointer(arg)
	}
	return out
}

func unwrap(args []Arg) []objcArg {
	out := make([]objcArg, len(args))
	for i, a := range args {
		out[i] = a.a
	}
	return out
}

func msgSend(obj ID, sel SEL, retType *types.TypeDescriptor, retPtr unsafe.Pointer, args ...objcArg) error {
	if obj == 0 || sel == 0 {
		return nil
	}

	argTypes := make([]*types.TypeDescriptor, 2+len(args))
	argTypes[0] = types.PointerTypeDescriptor
	argTypes[1] = types.PointerTypeDescriptor
	for i, arg := range args {
		argTypes[2+i] = arg.typ
	}

	cif := &types.CallInterface{}
	if err := ffi.PrepareCallInterface(cif, types.DefaultCall, retType, argTypes); err != nil {
		return err
	}

	self := uintptr(obj)
	cmd := uintptr(sel)
	argPtrs := make([]unsafe.Pointer, 2+len(args))
	argPtrs[0] = unsafe.Pointer(&self)
	argPtrs[1] = unsafe.Pointer(&cmd)
	for i, arg := range args {
		argPtrs[2+i] = arg.ptr
	}

	fn := msgSendSymbol(retType)
	err := ffi.CallFunction(cif, fn, retPtr, argPtrs)
	runtime.KeepAlive(args)
	return err
}

func msgSendSymbol(retType *types.TypeDescriptor) unsafe.Pointer {
	if retType != nil && retType.Kind == types.StructType && runtime.GOARCH == "amd64" {
		if symObjcMsgSendStret != nil && typeSize(retType) > 16 {
			return symObjcMsgSendStret
		}
	}
	if retType != nil && (retType.Kind == types.FloatType || retType.Kind == types.DoubleType) && runtime.GOARCH == "amd64" {
		if symObjcMsgSendFpret != nil {
			return symObjcMsgSendFpret
		}
	}
	return symObjcMsgSend
}

func typeSize(td *types.TypeDescriptor) uintptr {
	if td == nil {
		return 0
	}
	if td.Size != 0 {
		return td.Size
	}
	if td.Kind != types.StructType {
		return 0
	}
	var size, maxAlign uintptr
	for _, m := range td.Members {
		align := typeAlign(m)
		size = alignUp(size, align)
		size += typeSize(m)
		if align > maxAlign {
			maxAlign = align
		}
	}
	return alignUp(size, maxAlign)
}

func typeAlign(td *types.TypeDescriptor) uintptr {
	if td == nil {
		return 1
	}
	if td.Alignment != 0 {
		return td.Alignment
	}
	if td.Kind != types.StructType {
		return 1
	}
	var maxAlign uintptr
	for _, m := range td.Members {
		if a := typeAlign(m); a > maxAlign {
			maxAlign = a
		}
	}
	if maxAlign == 0 {
		return 1
	}
	return maxAlign
}

func alignUp(val, align uintptr) uintptr {
	if align == 0 {
		return val
	}
	if rem := val % align; rem != 0 {
		return val + (align - rem)
	}
	return val
}

// Send calls an Objective-C method that returns an object pointer.
func Send(obj ID, sel SEL, args ...uintptr) ID {
	var result ID
	_ = msgSend(obj, sel, types.PointerTypeDescriptor, unsafe.Pointer(&result), pointerArgs(args)...)
	return result
}

// SendArgs calls a method with a fully ordered argument list (built with
// Ptr/U64/I64/BoolArg/Struct), returning an object pointer.
func SendArgs(obj ID, sel SEL, args ...Arg) ID {
	var result ID
	_ = msgSend(obj, sel, types.PointerTypeDescriptor, unsafe.Pointer(&result), unwrap(args)...)
	return result
}

// SendVoid calls a method with no meaningful return value.
func SendVoid(obj ID, sel SEL, args ...uintptr) {
	msgSendVoidArgs(obj, sel, pointerArgs(args)...)
}

// SendVoidArgs is SendVoid with a fully ordered mixed argument list.
func SendVoidArgs(obj ID, sel SEL, args ...Arg) {
	msgSendVoidArgs(obj, sel, unwrap(args)...)
}

func msgSendVoidArgs(obj ID, sel SEL, args ...objcArg) {
	_ = msgSend(obj, sel, types.VoidTypeDescriptor, nil, args...)
}

// SendUint calls a method and returns an NSUInteger-shaped result.
func SendUint(obj ID, sel SEL, args ...uintptr) uint64 {
	var result uint64
	_ = msgSend(obj, sel, types.UInt64TypeDescriptor, unsafe.Pointer(&result), pointerArgs(args)...)
	return result
}

// SendBool calls a method and returns a BOOL-shaped result.
func SendBool(obj ID, sel SEL, args ...uintptr) bool {
	var result uint8
	_ = msgSend(obj, sel, types.UInt8TypeDescriptor, unsafe.Pointer(&result), pointerArgs(args)...)
	return result != 0
}

// Retain increments the reference count of an object.
func Retain(obj ID) ID {
	if obj == 0 {
		return 0
	}
	return Send(obj, Sel("retain"))
}

// Release decrements the reference count of an object.
func Release(obj ID) {
	if obj == 0 {
		return
	}
	_ = Send(obj, Sel("release"))
}

// AutoreleasePool manages an NSAutoreleasePool for a scoped block of calls.
type AutoreleasePool struct {
	pool ID
}

func NewAutoreleasePool() *AutoreleasePool {
	cls := ID(GetClass("NSAutoreleasePool"))
	p := Send(cls, Sel("alloc"))
	p = Send(p, Sel("init"))
	return &AutoreleasePool{pool: p}
}

func (p *AutoreleasePool) Drain() {
	if p.pool != 0 {
		_ = Send(p.pool, Sel("drain"))
		p.pool = 0
	}
}

// NSString creates a +1 retained NSString from a Go string.
func NSString(s string) ID {
	cls := ID(GetClass("NSString"))
	if len(s) == 0 {
		obj := Send(cls, Sel("alloc"))
		return Send(obj, Sel("init"))
	}
	cstr := append([]byte(s), 0)
	obj := Send(cls, Sel("alloc"))
	return Send(obj, Sel("initWithUTF8String:"), uintptr(unsafe.Pointer(&cstr[0])))
}

// GoString converts an NSString to a Go string.
func GoString(nsstr ID) string {
	if nsstr == 0 {
		return ""
	}
	cstr := Send(nsstr, Sel("UTF8String"))
	if cstr == 0 {
		return ""
	}
	return goStringFromCStr(uintptr(cstr))
}

func goStringFromCStr(cstr uintptr) string {
	if cstr == 0 {
		return ""
	}
	ptr := (*byte)(unsafe.Pointer(cstr)) //nolint:govet // required for FFI
	length := 0
	for i := 0; i < 1<<20; i++ {
		if *(*byte)(unsafe.Pointer(cstr + uintptr(i))) == 0 {
			length = i
			break
		}
	}
	if length == 0 {
		return ""
	}
	return string(unsafe.Slice(ptr, length))
}

// --------------------------------------------------------------------------
// Objective-C block ABI, pure Go.
//
// struct Block_literal { isa, flags, reserved, invoke, descriptor, blockID }
// The invoke trampoline receives the block pointer first, so we stash a
// Go-side correlation id at a fixed offset past the fields the runtime reads.
// Reference: https://clang.llvm.org/docs/Block-ABI-Apple.html

type blockLiteral struct {
	isa        uintptr
	flags      int32
	reserved   int32
	invoke     uintptr
	descriptor uintptr
	blockID    uint64
}

type blockDescriptor struct {
	reserved uint64
	size     uint64
}

var (
	symNSConcreteStackBlock  uintptr
	sharedBlockDescriptor    *blockDescriptor
	blockIDCounter           uint64
	notifyBlockInvokeOnce    sync.Once
	notifyBlockInvokePtr     uintptr
	completionBlockInvokePtr uintptr
	completionInvokeOnce     sync.Once
)

var (
	notifyRegistry     sync.Map // map[uint64]chan struct{}
	completionRegistry sync.Map // map[uint64]func()
)

func initBlockSupport() {
	if objcLib != nil {
		if sym, err := ffi.GetSymbol(objcLib, "_NSConcreteStackBlock"); err == nil && sym != nil {
			symNSConcreteStackBlock = *(*uintptr)(sym)
		}
	}
	sharedBlockDescriptor = &blockDescriptor{reserved: 0, size: uint64(unsafe.Sizeof(blockLiteral{}))}
}

func nextBlockID() uint64 { return atomic.AddUint64(&blockIDCounter, 1) }

func newBlock(invoke uintptr, id uint64) uintptr {
	block := &blockLiteral{
		isa:        symNSConcreteStackBlock,
		invoke:     invoke,
		descriptor: uintptr(unsafe.Pointer(sharedBlockDescriptor)),
		blockID:    id,
	}
	return uintptr(unsafe.Pointer(block))
}

func blockIDAt(blockPtr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(blockPtr + 32)) //nolint:govet // ObjC block ABI fixed offset
}

func notifyInvoke() uintptr {
	notifyBlockInvokeOnce.Do(func() {
		notifyBlockInvokePtr = ffi.NewCallback(func(blockPtr, _ uintptr, _ uint64) {
			if blockPtr == 0 {
				return
			}
			id := blockIDAt(blockPtr)
			if v, ok := notifyRegistry.Load(id); ok {
				ch := v.(chan struct{})
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		})
	})
	return notifyBlockInvokePtr
}

// NewNotifyBlock builds a block matching `void (^)(id, uint64_t)`, suitable
// for MTLSharedEvent's notifyListener:atValue:block:. The returned channel
// receives one value when the block fires; call ReleaseNotifyBlock once
// done waiting (on success or timeout) to avoid leaking the registry entry.
func NewNotifyBlock() (blockPtr uintptr, id uint64, done chan struct{}) {
	if symNSConcreteStackBlock == 0 {
		return 0, 0, nil
	}
	invoke := notifyInvoke()
	if invoke == 0 {
		return 0, 0, nil
	}
	id = nextBlockID()
	done = make(chan struct{}, 1)
	notifyRegistry.Store(id, done)
	return newBlock(invoke, id), id, done
}

// ReleaseNotifyBlock drops the registry entry for a notify block.
func ReleaseNotifyBlock(id uint64) { notifyRegistry.Delete(id) }

func completionInvoke() uintptr {
	completionInvokeOnce.Do(func() {
		completionBlockInvokePtr = ffi.NewCallback(func(blockPtr, _ uintptr) uintptr {
			if blockPtr == 0 {
				return 0
			}
			id := blockIDAt(blockPtr)
			if v, ok := completionRegistry.LoadAndDelete(id); ok {
				if fn := v.(func()); fn != nil {
					fn()
				}
			}
			return 0
		})
	})
	return completionBlockInvokePtr
}

// NewCompletionBlock builds a block matching `void (^)(id<MTLCommandBuffer>)`,
// suitable for addCompletedHandler:. fn runs on the Metal completion-handler
// thread when the command buffer finishes. Call CancelCompletionBlock if the
// block is never actually attached, to avoid leaking the closure.
func NewCompletionBlock(fn func()) (blockPtr uintptr, id uint64) {
	if symNSConcreteStackBlock == 0 {
		return 0, 0
	}
	invoke := completionInvoke()
	if invoke == 0 {
		return 0, 0
	}
	id = nextBlockID()
	completionRegistry.Store(id, fn)
	return newBlock(invoke, id), id
}

// CancelCompletionBlock removes a pending completion block without running it.
func CancelCompletionBlock(id uint64) {
	completionRegistry.Delete(id)
}
