package record_test

import "github.com/jhump/protoschema/record"

type Color int32

type Scalars struct {
	I32  int32   `wire:"1,req,int32"`
	I64  int64   `wire:"2,req,int64"`
	U32  uint32  `wire:"3,req,uint32"`
	U64  uint64  `wire:"4,req,uint64"`
	S32  int32   `wire:"5,req,sint32"`
	S64  int64   `wire:"6,req,sint64"`
	F32  uint32  `wire:"7,req,fixed32"`
	F64  uint64  `wire:"8,req,fixed64"`
	SF32 int32   `wire:"9,req,sfixed32"`
	SF64 int64   `wire:"10,req,sfixed64"`
	Fl   float32 `wire:"11,req,float"`
	Db   float64 `wire:"12,req,double"`
	B    bool    `wire:"13,req,bool"`
	S    string  `wire:"14,req,string"`
	By   []byte  `wire:"15,req,bytes"`
	E    Color   `wire:"16,req,enum"`
}

type Inner struct {
	Name  string `wire:"1,req,string"`
	Score *int32 `wire:"2,opt,sint32"`
}

type Outer struct {
	ID       int32            `wire:"1,req,int32"`
	Label    *string          `wire:"2,opt,string"`
	Nums     []int32          `wire:"3,rep,int32"`
	Unpacked []uint64         `wire:"4,rep,uint64,unpacked"`
	Tags     []string         `wire:"5,rep,string"`
	Inner    *Inner           `wire:"6,opt,message"`
	Items    []*Inner         `wire:"7,rep,message"`
	Attrs    map[string]int64 `wire:"8,rep,map[string]int64"`
	Lookup   map[int32]*Inner `wire:"9,rep,map[int32]message"`
	Count    *int32           `wire:"10,opt,message,wrapper=int32"`
	Blob     []byte           `wire:"11,opt,bytes"`
	Result   isOuter_Result   `wire:"12|13,oneof"`
	internal string
}

type isOuter_Result interface {
	isOuter_Result()
}

type Outer_Ok struct {
	Ok int32 `wire:"12,req,int32"`
}

type Outer_Err struct {
	Err *Inner `wire:"13,req,message"`
}

func (*Outer_Ok) isOuter_Result()  {}
func (*Outer_Err) isOuter_Result() {}

// Result is a message whose only content is a oneof, in unwrapped form.
type Result interface {
	isResult()
}

type Result_Success struct {
	Success int32 `wire:"1,req,int32"`
}

type Result_Failure struct {
	Failure string `wire:"2,req,string"`
}

func (*Result_Success) isResult() {}
func (*Result_Failure) isResult() {}

// WrappedResult is the same message as Result, in wrapped form.
type WrappedResult struct {
	Result isWrappedResult_Result `wire:"1|2,oneof"`
}

type isWrappedResult_Result interface {
	isWrappedResult_Result()
}

type WrappedResult_Success struct {
	Success int32 `wire:"1,req,int32"`
}

type WrappedResult_Failure struct {
	Failure string `wire:"2,req,string"`
}

func (*WrappedResult_Success) isWrappedResult_Result() {}
func (*WrappedResult_Failure) isWrappedResult_Result() {}

// Holder refers to the unwrapped union as a message field.
type Holder struct {
	Results []Result `wire:"1,rep,message"`
	Last    Result   `wire:"2,opt,message"`
}

type Node struct {
	Value int32 `wire:"1,req,int32"`
	Next  *Node `wire:"2,opt,message"`
}

type Packed struct {
	Values []int32 `wire:"1,rep,int32"`
}

type Unpacked struct {
	Values []int32 `wire:"1,rep,int32,unpacked"`
}

func init() {
	record.RegisterOneof[isOuter_Result](&Outer_Ok{}, &Outer_Err{})
	record.RegisterOneof[Result](&Result_Success{}, &Result_Failure{})
	record.RegisterOneof[isWrappedResult_Result](&WrappedResult_Success{}, &WrappedResult_Failure{})
}

// Expr is a recursive union: a variant holds the union itself.
type Expr interface {
	isExpr()
}

type Expr_Lit struct {
	Lit int32 `wire:"1,req,int32"`
}

type Expr_Neg struct {
	Neg Expr `wire:"2,req,message"`
}

type Expr_Call struct {
	Call *Call `wire:"3,req,message"`
}

func (*Expr_Lit) isExpr()  {}
func (*Expr_Neg) isExpr()  {}
func (*Expr_Call) isExpr() {}

// Call refers to Arg, a union registered after Expr.
type Call struct {
	Name string `wire:"1,req,string"`
	Args []Arg  `wire:"2,rep,message"`
}

type Arg interface {
	isArg()
}

type Arg_Expr struct {
	Expr Expr `wire:"1,req,message"`
}

type Arg_Name struct {
	Name string `wire:"2,req,string"`
}

func (*Arg_Expr) isArg() {}
func (*Arg_Name) isArg() {}

type Unregistered interface {
	isUnregistered()
}

type HoldsUnregistered struct {
	U Unregistered `wire:"1,opt,message"`
}

type unregisteredValue struct{}

func (*unregisteredValue) isUnregistered() {}

func init() {
	record.RegisterOneof[Expr](&Expr_Lit{}, &Expr_Neg{}, &Expr_Call{})
	record.RegisterOneof[Arg](&Arg_Expr{}, &Arg_Name{})
}
