package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.graphql"), []byte(`
		type User @key(selectionSet: "{ id }") { id: ID! name: String }
		type Query { userById(id: ID!): User @merge(keyField: "id") }
	`), 0o600))
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	require.Equal(t, "graphstitch "+version+"\n", out)
}

func TestTypeDefs(t *testing.T) {
	out, err := runCmd(t, "typedefs", "--merge", "stitch")
	require.NoError(t, err)
	require.Contains(t, out, "directive @stitch(argsExpr: String")
	require.Contains(t, out, "directive @key(selectionSet: String!) on OBJECT")
}

func TestCompose(t *testing.T) {
	path := writeConfig(t, `
subschemas:
  - name: users
    url: http://localhost:4001/graphql
    schema_file: users.graphql
  - name: posts
    url: http://localhost:4002/graphql
    sdl: "type Post { id: ID! author: User } type User { id: ID! } type Query { posts: [Post] }"
`)
	out, err := runCmd(t, "compose", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "posts: [Post]")
	require.Contains(t, out, "userById(id: ID!): User")
	require.NotContains(t, out, "@merge")

	file := filepath.Join(t.TempDir(), "out.graphql")
	_, err = runCmd(t, "compose", "-c", path, "-o", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(out), strings.TrimSpace(string(data)))
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
subschemas:
  - name: users
    url: http://localhost:4001/graphql
    schema_file: users.graphql
  - name: broken
    url: http://localhost:4002/graphql
    sdl: 'type User { id: ID } type Query { user(id: ID): User @merge(keyField: "id", key: ["id"]) }'
`)
	out, err := runCmd(t, "validate", "--config", path)
	require.ErrorContains(t, err, "1 of 2 subschemas failed validation")
	require.Contains(t, out, "users: ok\n")
	require.Contains(t, out, "broken: ")
}

func TestMissingConfig(t *testing.T) {
	_, err := runCmd(t, "compose", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read config")
}
