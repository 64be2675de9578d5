package wiregen

import (
	"bytes"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/jhump/protoschema/externtype"
	"github.com/jhump/protoschema/internal/prototest"
	"github.com/jhump/protoschema/namespace"
	"github.com/jhump/protoschema/record"
)

const importRoot = "example.com/gen"

const outerProto = `
syntax = "proto3";
package compat;

import "google/protobuf/wrappers.proto";

enum Color {
  COLOR_UNSPECIFIED = 0;
  COLOR_RED = 1;
  COLOR_GREEN = 2;
}

message Scalars {
  int32 i32 = 1;
  sint64 s64 = 6;
  fixed32 f32 = 7;
  double db = 12;
  bytes by = 15;
  Color e = 16;
}

// Inner holds a name.
message Inner {
  string name = 1;
  optional sint32 score = 2;
}

message Outer {
  int32 id = 1;
  optional string label = 2;
  repeated int32 nums = 3;
  repeated uint64 unpacked = 4 [packed = false];
  repeated string tags = 5;
  Inner inner = 6;
  repeated Inner items = 7;
  map<string, int64> attrs = 8;
  map<int32, Inner> lookup = 9;
  google.protobuf.Int32Value count = 10;
  optional bytes blob = 11;
  oneof result {
    int32 ok = 12;
    Inner err = 13;
  }

  enum Kind {
    KIND_UNKNOWN = 0;
    KIND_BIG = 1;
  }
  message Nested {
    Kind kind = 1;
    repeated google.protobuf.BytesValue blobs = 2;
  }
  Nested nested = 14;
}

message Result {
  oneof result {
    int32 success = 1;
    string failure = 2;
  }
}

message Holder {
  repeated Result results = 1;
  Result last = 2;
}

service Greeter {
  rpc SayHello(Inner) returns (Result);
  rpc SayGoodbye(Inner) returns (Result);
}
`

type memFile struct {
	bytes.Buffer
	name  string
	files map[string]string
}

func (f *memFile) Close() error {
	f.files[f.name] = f.String()
	return nil
}

func emitToMap(t *testing.T, g *Generator, tree *namespace.Tree) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := g.Emit(tree, func(name string) (io.WriteCloser, error) {
		return &memFile{name: name, files: files}, nil
	})
	require.NoError(t, err)
	return files
}

func generate(t *testing.T, g *Generator, sources map[string]string, names ...string) map[string]string {
	t.Helper()
	tree, err := g.Generate(prototest.Compile(t, sources, names...))
	require.NoError(t, err)
	return emitToMap(t, g, tree)
}

// normalize collapses runs of spaces and tabs so assertions don't depend on
// gofmt's alignment.
func normalize(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// checkParses parses src and checks that every wire tag in it is accepted
// by package record.
func checkParses(t *testing.T, name, src string) {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), name, src, parser.ParseComments)
	require.NoError(t, err, src)
	ast.Inspect(f, func(n ast.Node) bool {
		field, ok := n.(*ast.Field)
		if !ok || field.Tag == nil {
			return true
		}
		tag, err := strconv.Unquote(field.Tag.Value)
		require.NoError(t, err)
		wire, ok := reflect.StructTag(tag).Lookup("wire")
		require.True(t, ok, tag)
		_, err = record.ParseTag(wire)
		require.NoError(t, err, wire)
		return true
	})
}

func TestGenerateRecords(t *testing.T) {
	g := &Generator{ImportRoot: importRoot}
	files := generate(t, g, map[string]string{"compat.proto": outerProto})
	require.Len(t, files, 2)
	require.Contains(t, files, "wire.gen.go")
	src, ok := files["compat/wire.gen.go"]
	require.True(t, ok)
	checkParses(t, "compat/wire.gen.go", src)
	checkParses(t, "wire.gen.go", files["wire.gen.go"])

	norm := normalize(src)
	for _, want := range []string{
		"// Code generated by wiregen. DO NOT EDIT.",
		"package compat",
		"var Namespaces []string",

		"type Color int32",
		"Color_COLOR_RED Color = 1",
		`1: "COLOR_RED",`,
		`"COLOR_GREEN": 2,`,
		"return strconv.Itoa(int(x))",

		"I32 int32 `wire:\"1,req,int32\"`",
		"S64 int64 `wire:\"6,req,sint64\"`",
		"F32 uint32 `wire:\"7,req,fixed32\"`",
		"Db float64 `wire:\"12,req,double\"`",
		"By []byte `wire:\"15,req,bytes\"`",
		"E Color `wire:\"16,req,enum\"`",

		"// Inner holds a name.",
		"Name string `wire:\"1,req,string\"`",
		"Score *int32 `wire:\"2,opt,sint32\"`",

		"Id int32 `wire:\"1,req,int32\"`",
		"Label *string `wire:\"2,opt,string\"`",
		"Nums []int32 `wire:\"3,rep,int32\"`",
		"Unpacked []uint64 `wire:\"4,rep,uint64,unpacked\"`",
		"Tags []string `wire:\"5,rep,string\"`",
		"Inner *Inner `wire:\"6,opt,message\"`",
		"Items []*Inner `wire:\"7,rep,message\"`",
		"Attrs map[string]int64 `wire:\"8,rep,map[string]int64\"`",
		"Lookup map[int32]*Inner `wire:\"9,rep,map[int32]message\"`",
		"Count *int32 `wire:\"10,opt,message,wrapper=int32\"`",
		"Blob []byte `wire:\"11,opt,bytes\"`",
		"Result isOuter_Result `wire:\"12|13,oneof\"`",
		"Nested *Outer_Nested `wire:\"14,opt,message\"`",
		"type isOuter_Result interface {\nisOuter_Result()\n}",
		"type Outer_Ok struct {\nOk int32 `wire:\"12,req,int32\"`\n}",
		"type Outer_Err struct {\nErr *Inner `wire:\"13,req,message\"`\n}",
		"func (*Outer_Ok) isOuter_Result() {}",
		"record.RegisterOneof[isOuter_Result](&Outer_Ok{}, &Outer_Err{})",

		"type Outer_Kind int32",
		"Outer_Kind_KIND_BIG Outer_Kind = 1",
		"Kind Outer_Kind `wire:\"1,req,enum\"`",
		"Blobs [][]byte `wire:\"2,rep,message,wrapper=bytes\"`",

		"type Result interface {\nisResult()\n}",
		"type Result_Success struct {\nSuccess int32 `wire:\"1,req,int32\"`\n}",
		"func (*Result_Failure) isResult() {}",
		"record.RegisterOneof[Result](&Result_Success{}, &Result_Failure{})",
		"Results []Result `wire:\"1,rep,message\"`",
		"Last Result `wire:\"2,opt,message\"`",

		`Greeter_SayHello_FullMethodName = "/compat.Greeter/SayHello"`,
		`Greeter_SayGoodbye_FullMethodName = "/compat.Greeter/SayGoodbye"`,
	} {
		require.Contains(t, norm, want)
	}
	require.Contains(t, src, "\t\"github.com/jhump/protoschema/record\"\n")
	require.NotContains(t, norm, "type Outer_AttrsEntry")

	root := normalize(files["wire.gen.go"])
	require.Contains(t, root, "package gen")
	require.Contains(t, root, "var Namespaces = []string{\n\"example.com/gen/compat\",\n}")
}

func TestKeepOneofWrappers(t *testing.T) {
	g := &Generator{ImportRoot: importRoot, KeepOneofWrappers: true}
	files := generate(t, g, map[string]string{"compat.proto": outerProto})
	src := files["compat/wire.gen.go"]
	checkParses(t, "compat/wire.gen.go", src)
	norm := normalize(src)
	require.Contains(t, norm, "type Result struct {\nResult isResult_Result `wire:\"1|2,oneof\"`\n}")
	require.Contains(t, norm, "record.RegisterOneof[isResult_Result](&Result_Success{}, &Result_Failure{})")
	require.Contains(t, norm, "Last *Result `wire:\"2,opt,message\"`")
	require.Contains(t, norm, "Results []*Result `wire:\"1,rep,message\"`")
}

func TestProto2Cardinality(t *testing.T) {
	files := generate(t, &Generator{ImportRoot: importRoot}, map[string]string{"p2.proto": `
		syntax = "proto2";
		package p2;
		message Msg {
		  required int32 a = 1;
		  optional int32 b = 2;
		  repeated int32 c = 3;
		  repeated int32 d = 4 [packed = true];
		  required Msg self = 5;
		  optional bytes e = 6;
		  repeated string f = 7;
		}
	`})
	src := files["p2/wire.gen.go"]
	checkParses(t, "p2/wire.gen.go", src)
	norm := normalize(src)
	for _, want := range []string{
		"A int32 `wire:\"1,req,int32\"`",
		"B *int32 `wire:\"2,opt,int32\"`",
		"C []int32 `wire:\"3,rep,int32,unpacked\"`",
		"D []int32 `wire:\"4,rep,int32\"`",
		"Self *Msg `wire:\"5,req,message\"`",
		"E []byte `wire:\"6,opt,bytes\"`",
		"F []string `wire:\"7,rep,string\"`",
	} {
		require.Contains(t, norm, want)
	}
	// no oneofs and no enums means no imports
	require.NotContains(t, src, "import (")
}

func TestCrossPackageReferences(t *testing.T) {
	sources := map[string]string{
		"a.proto": `
			syntax = "proto3";
			package a;
			message Top { string name = 1; }
		`,
		"a/b.proto": `
			syntax = "proto3";
			package a.b;
			import "a.proto";
			message B { a.Top top = 1; }
		`,
		"a/c.proto": `
			syntax = "proto3";
			package a.c;
			import "a.proto";
			import "a/b.proto";
			message C {
			  a.b.B b = 1;
			  repeated a.Top tops = 2;
			  map<string, a.b.B> bs = 3;
			}
		`,
	}
	files := generate(t, &Generator{ImportRoot: importRoot}, sources, "a.proto", "a/b.proto", "a/c.proto")
	require.Len(t, files, 4)
	for name, src := range files {
		checkParses(t, name, src)
	}

	b := normalize(files["a/b/wire.gen.go"])
	require.Contains(t, b, "package b")
	require.Contains(t, b, `"example.com/gen/a"`)
	require.Contains(t, b, "Top *a.Top `wire:\"1,opt,message\"`")

	c := normalize(files["a/c/wire.gen.go"])
	require.Contains(t, c, `"example.com/gen/a"`)
	require.Contains(t, c, `"example.com/gen/a/b"`)
	require.Contains(t, c, "B *b.B `wire:\"1,opt,message\"`")
	require.Contains(t, c, "Tops []*a.Top `wire:\"2,rep,message\"`")
	require.Contains(t, c, "Bs map[string]*b.B `wire:\"3,rep,map[string]message\"`")

	a := normalize(files["a/wire.gen.go"])
	require.Contains(t, a, "var Namespaces = []string{\n\"example.com/gen/a/b\",\n\"example.com/gen/a/c\",\n}")
	require.NotContains(t, a, "import (")
}

func TestImportAliasCollision(t *testing.T) {
	sources := map[string]string{
		"a/record.proto": `
			syntax = "proto3";
			package a.record;
			message Thing { string id = 1; }
		`,
		"a/other.proto": `
			syntax = "proto3";
			package a.other;
			import "a/record.proto";
			message Holder {
			  a.record.Thing thing = 1;
			  oneof value {
			    string raw = 2;
			    int32 num = 3;
			  }
			}
		`,
	}
	files := generate(t, &Generator{ImportRoot: importRoot}, sources, "a/record.proto", "a/other.proto")
	src := files["a/other/wire.gen.go"]
	checkParses(t, "a/other/wire.gen.go", src)
	norm := normalize(src)
	require.Contains(t, norm, "Thing *record.Thing `wire:\"1,opt,message\"`")
	require.Contains(t, norm, "Value isHolder_Value `wire:\"2|3,oneof\"`")
	require.Contains(t, norm, "record2.RegisterOneof[isHolder_Value](&Holder_Raw{}, &Holder_Num{})")
	require.Contains(t, norm, `record2 "github.com/jhump/protoschema/record"`)
	require.Contains(t, norm, `"example.com/gen/a/record"`)
}

func TestUnresolvedReference(t *testing.T) {
	sources := map[string]string{"svc.proto": `
		syntax = "proto3";
		package svc;
		import "google/protobuf/timestamp.proto";
		message Event { google.protobuf.Timestamp at = 1; }
	`}
	fds := prototest.Compile(t, sources, "svc.proto")

	_, err := (&Generator{ImportRoot: importRoot}).Generate(fds)
	var unresolved *UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	require.Equal(t, protoreflect.FullName("svc.Event.at"), unresolved.Field)
	require.Equal(t, protoreflect.FullName("google.protobuf.Timestamp"), unresolved.Type)
	var unrelated *namespace.UnrelatedError
	require.True(t, errors.As(err, &unrelated))

	testCases := []struct {
		name  string
		entry externtype.Entry
		field string
		imp   string
	}{
		{
			name:  "exact",
			entry: externtype.Entry{Path: "google.protobuf.Timestamp", Target: "example.com/clock.Instant"},
			field: "At *clock.Instant `wire:\"1,opt,message\"`",
			imp:   `"example.com/clock"`,
		},
		{
			name:  "package prefix",
			entry: externtype.Entry{Path: ".google", Target: "example.com/googleapis"},
			field: "At *protobuf.Timestamp `wire:\"1,opt,message\"`",
			imp:   `"example.com/googleapis/protobuf"`,
		},
		{
			name:  "empty message",
			entry: externtype.Entry{Path: "google.protobuf.Timestamp", Target: "struct{}"},
			field: "At *struct{} `wire:\"1,opt,message\"`",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := &Generator{ImportRoot: importRoot, ExternTypes: []externtype.Entry{tc.entry}}
			tree, err := g.Generate(fds)
			require.NoError(t, err)
			src := emitToMap(t, g, tree)["svc/wire.gen.go"]
			checkParses(t, "svc/wire.gen.go", src)
			require.Contains(t, normalize(src), tc.field)
			if tc.imp != "" {
				require.Contains(t, src, tc.imp)
			}
		})
	}

	// a builtin target must match the wrapper's field 1
	g := &Generator{ImportRoot: importRoot, ExternTypes: []externtype.Entry{
		{Path: "google.protobuf.Timestamp", Target: "string"},
	}}
	_, err = g.Generate(fds)
	var unsupported *UnsupportedError
	require.True(t, errors.As(err, &unsupported), "got %v", err)
}

func TestGenerateSkipsExternAndFiltered(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	g := &Generator{
		ImportRoot: importRoot,
		ExternTypes: []externtype.Entry{
			{Path: "shop.Money", Target: "example.com/money.Amount"},
		},
		Filter: func(name protoreflect.FullName) bool {
			return name != "shop.Internal"
		},
		Logger: &logger,
	}
	files := generate(t, g, map[string]string{"shop.proto": `
		syntax = "proto2";
		package shop;
		message Money { required int64 cents = 1; }
		message Internal { optional string secret = 1; }
		message Order {
		  required Money total = 1;
		  optional Internal internal = 2;
		  extensions 100 to 200;
		}
		extend Order { optional string tag = 100; }
	`})
	src := files["shop/wire.gen.go"]
	checkParses(t, "shop/wire.gen.go", src)
	norm := normalize(src)
	require.NotContains(t, norm, "type Money")
	require.NotContains(t, norm, "type Internal")
	require.Contains(t, norm, "Total *money.Amount `wire:\"1,req,message\"`")
	require.Contains(t, norm, "Internal *Internal `wire:\"2,opt,message\"`")
	require.Contains(t, src, `"example.com/money"`)

	out := logs.String()
	require.Contains(t, out, "skipping external type")
	require.Contains(t, out, "skipping filtered type")
	require.Contains(t, out, `"extension":"shop.tag"`)
}

func TestGroupsAreUnsupported(t *testing.T) {
	fds := prototest.Compile(t, map[string]string{"g.proto": `
		syntax = "proto2";
		package g;
		message M {
		  optional group Data = 1 {
		    optional int32 x = 2;
		  }
		}
	`}, "g.proto")
	_, err := (&Generator{ImportRoot: importRoot}).Generate(fds)
	var unsupported *UnsupportedError
	require.True(t, errors.As(err, &unsupported), "got %v", err)
	require.Equal(t, protoreflect.FullName("g.M.data"), unsupported.Element)
}

func TestConfigErrors(t *testing.T) {
	testCases := map[string]*Generator{
		"no import root":       {},
		"trailing slash":       {ImportRoot: "example.com/gen/"},
		"space in import root": {ImportRoot: "example.com/my gen"},
		"bad extern": {ImportRoot: importRoot, ExternTypes: []externtype.Entry{
			{Path: "foo..Bar", Target: "int32"},
		}},
	}
	for name, g := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := g.Generate(nil)
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
	_, err := (&Generator{ImportRoot: importRoot, ExternTypes: []externtype.Entry{{Path: "a", Target: ""}}}).Generate(nil)
	var entryErr *externtype.ConfigError
	require.True(t, errors.As(err, &entryErr))
}

func TestFormatterFailure(t *testing.T) {
	fds := prototest.Compile(t, map[string]string{"compat.proto": outerProto}, "compat.proto")
	broken := func(string, []byte) ([]byte, error) {
		return nil, errors.New("formatter unavailable")
	}

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	g := &Generator{ImportRoot: importRoot, Formatter: broken, Logger: &logger}
	tree, err := g.Generate(fds)
	require.NoError(t, err)
	files := emitToMap(t, g, tree)
	require.Len(t, files, 2)
	checkParses(t, "compat/wire.gen.go", files["compat/wire.gen.go"])
	require.Contains(t, logs.String(), `"level":"warn"`)
	require.Contains(t, logs.String(), "formatter unavailable")

	g.StrictFormatting = true
	err = g.Emit(tree, func(name string) (io.WriteCloser, error) {
		return &memFile{name: name, files: map[string]string{}}, nil
	})
	var fmtErr *FormatError
	require.True(t, errors.As(err, &fmtErr), "got %v", err)
	require.Equal(t, "wire.gen.go", fmtErr.File)
}

func TestGenerateIsDeterministic(t *testing.T) {
	g := &Generator{ImportRoot: importRoot}
	first := generate(t, g, map[string]string{"compat.proto": outerProto})
	second := generate(t, g, map[string]string{"compat.proto": outerProto})
	require.Equal(t, first, second)
}

func TestGenerateToFileSystem(t *testing.T) {
	dir := t.TempDir()
	fds := prototest.Compile(t, map[string]string{"compat.proto": outerProto}, "compat.proto")
	g := &Generator{ImportRoot: importRoot}
	require.NoError(t, g.GenerateToFileSystem(fds, dir))

	data, err := os.ReadFile(filepath.Join(dir, "compat", FileName))
	require.NoError(t, err)
	require.Contains(t, string(data), "package compat")
	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
}

func TestManifestNameIsReserved(t *testing.T) {
	files := generate(t, &Generator{ImportRoot: importRoot}, map[string]string{"ns.proto": `
		syntax = "proto3";
		package ns;
		message Namespaces { string name = 1; }
		message User { Namespaces home = 1; }
	`})
	src := files["ns/wire.gen.go"]
	checkParses(t, "ns/wire.gen.go", src)
	norm := normalize(src)
	require.Contains(t, norm, "var Namespaces []string")
	require.Contains(t, norm, "type Namespaces_ struct {")
	require.Contains(t, norm, "Home *Namespaces_ `wire:\"1,opt,message\"`")
}

func TestImportCyclesAreUnsupported(t *testing.T) {
	sources := map[string]string{
		"a/b/leaf.proto": `
			syntax = "proto3";
			package a.b;
			message Leaf { string name = 1; }
		`,
		"a/top.proto": `
			syntax = "proto3";
			package a;
			import "a/b/leaf.proto";
			message Top { a.b.Leaf leaf = 1; }
		`,
		"a/b/back.proto": `
			syntax = "proto3";
			package a.b;
			import "a/top.proto";
			message Back { a.Top top = 1; }
		`,
	}
	fds := prototest.Compile(t, sources, "a/b/leaf.proto", "a/top.proto", "a/b/back.proto")
	_, err := (&Generator{ImportRoot: importRoot}).Generate(fds)
	var unsupported *UnsupportedError
	require.True(t, errors.As(err, &unsupported), "got %v", err)
	require.Equal(t, protoreflect.FullName("a.b"), unsupported.Element)
	require.Contains(t, unsupported.Reason, "example.com/gen/a -> example.com/gen/a/b -> example.com/gen/a")

	// without the back reference the same packages generate fine
	fds = prototest.Compile(t, sources, "a/b/leaf.proto", "a/top.proto")
	_, err = (&Generator{ImportRoot: importRoot}).Generate(fds)
	require.NoError(t, err)
}
