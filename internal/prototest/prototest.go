// Package prototest compiles inline .proto sources into descriptors for
// tests.
package prototest

import (
	"context"
	"testing"

	"github.com/bufbuild/protocompile"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Compile compiles the named files out of sources, which maps file paths
// to their contents. Imports of the standard well-known files resolve
// without being listed. The returned descriptors are in the order of names.
func Compile(t testing.TB, sources map[string]string, names ...string) []protoreflect.FileDescriptor {
	t.Helper()
	if len(names) == 0 {
		for name := range sources {
			names = append(names, name)
		}
	}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		}),
		SourceInfoMode: protocompile.SourceInfoStandard,
	}
	files, err := compiler.Compile(context.Background(), names...)
	require.NoError(t, err)
	fds := make([]protoreflect.FileDescriptor, len(files))
	for i, f := range files {
		fds[i] = f
	}
	return fds
}

// Message returns the message named name from files.
func Message(t testing.TB, files []protoreflect.FileDescriptor, name protoreflect.FullName) protoreflect.MessageDescriptor {
	t.Helper()
	for _, fd := range files {
		if md := findMessage(fd.Messages(), name); md != nil {
			return md
		}
	}
	t.Fatalf("message %s not found", name)
	return nil
}

func findMessage(msgs protoreflect.MessageDescriptors, name protoreflect.FullName) protoreflect.MessageDescriptor {
	for i := 0; i < msgs.Len(); i++ {
		md := msgs.Get(i)
		if md.FullName() == name {
			return md
		}
		if nested := findMessage(md.Messages(), name); nested != nil {
			return nested
		}
	}
	return nil
}
