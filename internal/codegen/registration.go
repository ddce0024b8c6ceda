package codegen

import (
	"github.com/kolkov/awkjit/internal/jit"
	"github.com/kolkov/awkjit/ir"
)

// registrationState is a Backend that only records where each runtime
// function lives. It runs before the module exists so the module can
// resolve its imports; types carry no information at this stage.
type registrationState struct {
	builder *jit.Builder
}

func (*registrationState) VoidPtrTy() struct{}     { return struct{}{} }
func (*registrationState) PtrTo(struct{}) struct{} { return struct{}{} }
func (*registrationState) UsizeTy() struct{}       { return struct{}{} }
func (*registrationState) U32Ty() struct{}         { return struct{}{} }
func (*registrationState) GetTy(ir.Ty) struct{}    { return struct{}{} }

func (r *registrationState) RegisterExternalFn(name string, addr uintptr, _ Sig[struct{}]) error {
	r.builder.Symbol(name, addr)
	return nil
}
