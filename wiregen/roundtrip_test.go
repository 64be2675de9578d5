package wiregen

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhump/protoschema/internal/prototest"
)

var roundTripSources = map[string]string{
	"acme/sub/leaf.proto": `
		syntax = "proto3";
		package acme.sub;
		message Leaf {
		  string name = 1;
		  repeated sint64 weights = 2;
		}
	`,
	"acme/acme.proto": `
		syntax = "proto3";
		package acme;
		import "acme/sub/leaf.proto";
		import "google/protobuf/wrappers.proto";

		enum Mood {
		  MOOD_UNSPECIFIED = 0;
		  MOOD_HAPPY = 1;
		}

		message Expr {
		  oneof kind {
		    int32 lit = 1;
		    Expr neg = 2;
		    Call call = 3;
		    Arg arg = 4;
		  }
		}

		message Call {
		  string fn = 1;
		  repeated Arg args = 2;
		}

		message Arg {
		  oneof arg {
		    Expr expr = 1;
		    string name = 2;
		  }
		}

		message Result {
		  oneof result {
		    int32 success = 1;
		    string failure = 2;
		  }
		}

		message Top {
		  sub.Leaf leaf = 1;
		  Mood mood = 2;
		  repeated int32 nums = 3;
		  map<string, sub.Leaf> leaves = 4;
		  Expr expr = 5;
		  Result result = 6;
		  optional string note = 7;
		  google.protobuf.Int32Value count = 8;
		  bytes blob = 9;
		}
	`,
}

// roundTripMain builds equivalent values from the unwrapped and wrapped
// generations, and checks that each decodes the other's bytes.
const roundTripMain = `package main

import (
	"bytes"
	"fmt"
	"os"
	"reflect"

	"github.com/jhump/protoschema/record"

	uw "BASE/unwrapped/acme"
	uwsub "BASE/unwrapped/acme/sub"
	w "BASE/wrapped/acme"
	wsub "BASE/wrapped/acme/sub"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func run() error {
	note := "n"
	count := int32(7)
	unwrapped := &uw.Top{
		Leaf:   &uwsub.Leaf{Name: "l", Weights: []int64{-1, 2}},
		Mood:   uw.Mood_MOOD_HAPPY,
		Nums:   []int32{1, -2, 3},
		Leaves: map[string]*uwsub.Leaf{"x": {Name: "x"}, "y": {Name: "y", Weights: []int64{9}}},
		Expr: &uw.Expr_Neg{Neg: &uw.Expr_Arg{Arg: &uw.Arg_Expr{Expr: &uw.Expr_Call{Call: &uw.Call{
			Fn:   "max",
			Args: []uw.Arg{&uw.Arg_Name{Name: "v"}, &uw.Arg_Expr{Expr: &uw.Expr_Lit{Lit: 4}}},
		}}}}},
		Result: &uw.Result_Success{Success: 1},
		Note:   &note,
		Count:  &count,
		Blob:   []byte{1, 2},
	}
	wrapped := &w.Top{
		Leaf:   &wsub.Leaf{Name: "l", Weights: []int64{-1, 2}},
		Mood:   w.Mood_MOOD_HAPPY,
		Nums:   []int32{1, -2, 3},
		Leaves: map[string]*wsub.Leaf{"x": {Name: "x"}, "y": {Name: "y", Weights: []int64{9}}},
		Expr: &w.Expr{Kind: &w.Expr_Neg{Neg: &w.Expr{Kind: &w.Expr_Arg{Arg: &w.Arg{Arg: &w.Arg_Expr{Expr: &w.Expr{Kind: &w.Expr_Call{Call: &w.Call{
			Fn: "max",
			Args: []*w.Arg{
				{Arg: &w.Arg_Name{Name: "v"}},
				{Arg: &w.Arg_Expr{Expr: &w.Expr{Kind: &w.Expr_Lit{Lit: 4}}}},
			},
		}}}}}}}}},
		Result: &w.Result{Result: &w.Result_Success{Success: 1}},
		Note:   &note,
		Count:  &count,
		Blob:   []byte{1, 2},
	}

	ub, err := record.Marshal(unwrapped)
	if err != nil {
		return fmt.Errorf("marshal unwrapped: %w", err)
	}
	wb, err := record.Marshal(wrapped)
	if err != nil {
		return fmt.Errorf("marshal wrapped: %w", err)
	}
	if !bytes.Equal(ub, wb) {
		return fmt.Errorf("encodings differ:\n%x\n%x", ub, wb)
	}
	if size, err := record.Size(unwrapped); err != nil || size != len(ub) {
		return fmt.Errorf("size %d, %v; encoded %d bytes", size, err, len(ub))
	}

	var fromWrapped uw.Top
	if err := record.Unmarshal(wb, &fromWrapped); err != nil {
		return fmt.Errorf("unmarshal unwrapped: %w", err)
	}
	if !reflect.DeepEqual(unwrapped, &fromWrapped) {
		return fmt.Errorf("unwrapped mismatch: %+v", fromWrapped)
	}
	var fromUnwrapped w.Top
	if err := record.Unmarshal(ub, &fromUnwrapped); err != nil {
		return fmt.Errorf("unmarshal wrapped: %w", err)
	}
	if !reflect.DeepEqual(wrapped, &fromUnwrapped) {
		return fmt.Errorf("wrapped mismatch: %+v", fromUnwrapped)
	}

	var union uw.Result = &uw.Result_Failure{Failure: "f"}
	rb, err := record.Marshal(&union)
	if err != nil {
		return err
	}
	var msg w.Result
	if err := record.Unmarshal(rb, &msg); err != nil {
		return err
	}
	if !reflect.DeepEqual(msg.Result, &w.Result_Failure{Failure: "f"}) {
		return fmt.Errorf("result mismatch: %+v", msg)
	}

	if s := uw.Mood_MOOD_HAPPY.String(); s != "MOOD_HAPPY" {
		return fmt.Errorf("Mood.String() = %q", s)
	}
	return nil
}
`

// TestGeneratedCodeRoundTrips compiles generated packages with the go tool
// and runs a program that round-trips values through them.
func TestGeneratedCodeRoundTrips(t *testing.T) {
	if testing.Short() {
		t.Skip("builds generated code")
	}
	goTool, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go tool not available")
	}

	// the generated packages must be inside this module to import record
	dir, err := os.MkdirTemp(".", "roundtrip")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	base := "github.com/jhump/protoschema/wiregen/" + filepath.Base(dir)

	fds := prototest.Compile(t, roundTripSources, "acme/sub/leaf.proto", "acme/acme.proto")
	unwrapped := &Generator{ImportRoot: base + "/unwrapped"}
	require.NoError(t, unwrapped.GenerateToFileSystem(fds, filepath.Join(dir, "unwrapped")))
	wrapped := &Generator{ImportRoot: base + "/wrapped", KeepOneofWrappers: true}
	require.NoError(t, wrapped.GenerateToFileSystem(fds, filepath.Join(dir, "wrapped")))

	program := strings.ReplaceAll(roundTripMain, "BASE", base)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(program), 0o644))

	cmd := exec.Command(goTool, "run", "./"+filepath.Base(dir))
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	require.True(t, strings.HasSuffix(string(out), "ok\n"), string(out))
}

func TestRecursiveUnionSource(t *testing.T) {
	files := generate(t, &Generator{ImportRoot: importRoot}, roundTripSources, "acme/sub/leaf.proto", "acme/acme.proto")
	src := files["acme/wire.gen.go"]
	checkParses(t, "acme/wire.gen.go", src)
	norm := normalize(src)
	require.Contains(t, norm, "Neg Expr `wire:\"2,req,message\"`")
	require.Contains(t, norm, "Arg Arg `wire:\"4,req,message\"`")
	require.Contains(t, norm, "record.RegisterOneof[Expr](&Expr_Lit{}, &Expr_Neg{}, &Expr_Call{}, &Expr_Arg{})")
	require.Contains(t, norm, "Args []Arg `wire:\"2,rep,message\"`")
	require.Contains(t, norm, "Leaves map[string]*sub.Leaf `wire:\"4,rep,map[string]message\"`")
}
