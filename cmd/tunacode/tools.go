// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tunacode/tunacode-go/pkg/todo"
)

// builtinExecutor implements toolexec.Executor with the small set of
// tools the core's default categorization tables (pkg/authz) name:
// read_file, list_dir (read-only), and the todowrite/todoread pair.
// Concrete build/test/exec tools are app-layer concerns the spec places
// out of scope (spec §1 Non-goals) — wiring a real "bash" or
// "write_file" tool belongs to the product, not this core.
type builtinExecutor struct {
	cwd   string
	todos *todo.Store
}

func (e builtinExecutor) Invoke(ctx context.Context, name string, args []byte) (string, error) {
	switch name {
	case "read_file":
		return e.readFile(args)
	case "list_dir":
		return e.listDir(args)
	case todo.WriteToolName:
		return todo.Call(e.todos, args)
	case todo.ReadToolName:
		return todo.Read(e.todos), nil
	default:
		return "", fmt.Errorf("tool %q is not implemented by this headless runner", name)
	}
}

type pathArgs struct {
	Path string `json:"path"`
}

func (e builtinExecutor) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.cwd, p)
}

func (e builtinExecutor) readFile(raw []byte) (string, error) {
	var a pathArgs
	if err := json.Unmarshal(raw, &a); err != nil || a.Path == "" {
		return "", fmt.Errorf("read_file: missing \"path\" argument")
	}
	data, err := os.ReadFile(e.resolve(a.Path))
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	return string(data), nil
}

func (e builtinExecutor) listDir(raw []byte) (string, error) {
	var a pathArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		a.Path = "."
	}
	if a.Path == "" {
		a.Path = "."
	}
	entries, err := os.ReadDir(e.resolve(a.Path))
	if err != nil {
		return "", fmt.Errorf("list_dir: %w", err)
	}
	out := ""
	for _, ent := range entries {
		if ent.IsDir() {
			out += ent.Name() + "/\n"
		} else {
			out += ent.Name() + "\n"
		}
	}
	return out, nil
}
