package repository

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestImageAnalysisKey(t *testing.T) {
	c := qt.New(t)

	key := ImageAnalysisKey("https://cdn.example.com/products/clock.jpg")
	c.Check(strings.HasPrefix(key, "adgen:image-analysis:"), qt.IsTrue)
	// sha256 hex digest after the namespace.
	c.Check(strings.TrimPrefix(key, "adgen:image-analysis:"), qt.HasLen, 64)

	// Same reference, same key.
	c.Check(ImageAnalysisKey("https://cdn.example.com/products/clock.jpg"), qt.Equals, key)
	// Different reference, different key.
	c.Check(ImageAnalysisKey("https://cdn.example.com/products/clock2.jpg"), qt.Not(qt.Equals), key)

	// Arbitrarily long references still produce fixed-size keys.
	long := ImageAnalysisKey("https://cdn.example.com/" + strings.Repeat("a", 4096))
	c.Check(long, qt.HasLen, len("adgen:image-analysis:")+64)
}

func TestInExprQuoting(t *testing.T) {
	c := qt.New(t)

	c.Check(InExpr("platform", []string{"meta", "all"}), qt.Equals, `platform in ["meta", "all"]`)
	c.Check(InExpr("goal", []string{"conversion"}), qt.Equals, `goal in ["conversion"]`)
	// Values are quoted, so embedded quotes cannot break the expression.
	c.Check(InExpr("category", []string{`sports "gear"`}), qt.Equals, `category in ["sports \"gear\""]`)
}
