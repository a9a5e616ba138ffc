package jvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSignature(t *testing.T) {
	tests := []struct {
		sig    string
		params []string
		ret    string
	}{
		{"()V", nil, "V"},
		{"(II)I", []string{"I", "I"}, "I"},
		{"(Ljava/lang/String;J)Ljava/lang/Object;", []string{"Ljava/lang/String;", "J"}, "Ljava/lang/Object;"},
		{"([B[Ljava/lang/String;)Z", []string{"[B", "[Ljava/lang/String;"}, "Z"},
		{"([[I)V", []string{"[[I"}, "V"},
	}
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			params, ret, err := splitSignature(tt.sig)
			require.NoError(t, err)
			assert.Equal(t, tt.params, params)
			assert.Equal(t, tt.ret, ret)
		})
	}
}

func TestSplitSignatureRejectsMalformed(t *testing.T) {
	for _, sig := range []string{"", "II)I", "(II", "(Ljava/lang/String)V", "(II)", "(Q)V", "(I)IZ"} {
		_, _, err := splitSignature(sig)
		assert.Error(t, err, "signature %q", sig)
	}
}

func TestDescriptorFromClassName(t *testing.T) {
	tests := map[string]string{
		"void":                 "V",
		"boolean":              "Z",
		"int":                  "I",
		"long":                 "J",
		"double":               "D",
		"java.lang.String":     "Ljava/lang/String;",
		"java.sql.ResultSet":   "Ljava/sql/ResultSet;",
		"[B":                   "[B",
		"[Ljava.lang.String;":  "[Ljava/lang/String;",
		"[[Ljava.lang.Object;": "[[Ljava/lang/Object;",
	}
	for name, want := range tests {
		assert.Equal(t, want, descriptorFromClassName(name), "class %s", name)
	}
}

func TestRetArg(t *testing.T) {
	for _, sig := range []string{"V", "Z", "I", "J", "D", "[B", "[I", "Ljava/lang/String;", "[Ljava/lang/String;"} {
		_, err := retArg(sig)
		assert.NoError(t, err, "descriptor %s", sig)
	}
	_, err := retArg("Q")
	assert.Error(t, err)
}

func TestSplitThrowable(t *testing.T) {
	class, msg := splitThrowable("java.lang.IllegalStateException: boom")
	assert.Equal(t, "java.lang.IllegalStateException", class)
	assert.Equal(t, "boom", msg)

	class, msg = splitThrowable("java.lang.NullPointerException")
	assert.Equal(t, "java.lang.NullPointerException", class)
	assert.Equal(t, "", msg)

	// A bridge-level failure has no throwable class to key on.
	class, _ = splitThrowable("method not found: add(II)I")
	assert.Equal(t, "", class)
	class, _ = splitThrowable("some jni failure")
	assert.Equal(t, "", class)
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, "java/lang/String", classOf("Ljava/lang/String;"))
}
