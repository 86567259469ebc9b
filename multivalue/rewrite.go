package multivalue

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/wasmlink/ffigen/errors"
	"github.com/wasmlink/ffigen/lower"
)

// DefaultTool is the external binary-rewriting collaborator.
const DefaultTool = "multi-value-reverse-polyfill"

// Args computes the per-export rewrite arguments: for every
// struct-returning import, its symbol followed by the ordered field
// kind tags. Imports returning zero or one scalar need no
// compensation and contribute nothing.
func Args(imports []*lower.Import) []string {
	var out []string
	for _, imp := range imports {
		if imp.Ret.Kind != lower.RetStruct {
			continue
		}
		parts := make([]string, 0, len(imp.Ret.Slots)+1)
		parts = append(parts, imp.Symbol)
		for _, s := range imp.Ret.Slots {
			parts = append(parts, s.Kind.String())
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

// Rewriter runs the external multi-return rewrite step.
type Rewriter struct {
	// Tool overrides the rewrite binary. Empty means DefaultTool.
	Tool string
}

// Run patches the compiled module at path, writing the result next to
// it with a ".multivalue.wasm" suffix. When no export needs
// compensation the module is copied unchanged. The rewrite must
// succeed or generation fails with the tool's reported status.
func (r *Rewriter) Run(ctx context.Context, path string, imports []*lower.Import) error {
	args := Args(imports)
	if len(args) == 0 {
		Logger().Debug("no struct-returning exports, copying module",
			zap.String("path", path))
		return copyFile(path, path+".multivalue.wasm")
	}

	tool := r.Tool
	if tool == "" {
		tool = DefaultTool
	}
	if _, err := exec.LookPath(tool); err != nil {
		return errors.New(errors.PhaseRewrite, errors.KindRewriteFailed,
			"rewrite tool %q unavailable", tool).Wrap(err)
	}

	cmd := exec.CommandContext(ctx, tool, append([]string{path}, args...)...)
	Logger().Info("running multi-return rewrite",
		zap.String("tool", tool),
		zap.String("path", path),
		zap.Int("exports", len(args)))

	out, err := cmd.CombinedOutput()
	if err != nil {
		Logger().Error("rewrite failed",
			zap.Error(err),
			zap.ByteString("output", out))
		return errors.New(errors.PhaseRewrite, errors.KindRewriteFailed,
			"%q reported failure for %s", tool, path).Wrap(err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.New(errors.PhaseRewrite, errors.KindRewriteFailed, "open %s", src).Wrap(err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.New(errors.PhaseRewrite, errors.KindRewriteFailed, "create %s", dst).Wrap(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.New(errors.PhaseRewrite, errors.KindRewriteFailed, "copy %s", dst).Wrap(err)
	}
	return out.Close()
}
