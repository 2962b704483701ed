// Package manifest verifies patched Kubernetes template
// manifests. The text patcher rewrites lines without
// parsing, so after a real write the document is decoded
// and the annotation value is checked against the
// expected version.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// VerifyAnnotation decodes every YAML document in the
// file at path and checks each occurrence of the
// metadata annotation key against want, at any nesting
// depth (template manifests embed the annotated object
// under an objects list). An absent annotation or a
// stale value is an error: the structural patch claimed
// a change it did not deliver.
func VerifyAnnotation(
	path string,
	key string,
	want string,
) error {
	const errCtx = "verifying manifest annotation"

	data, err := os.ReadFile(path) //nolint:gosec // paths from the mapping table
	if err != nil {
		return fmt.Errorf(
			"%s: read %s: %w", errCtx, path, err,
		)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))

	found := false

	for {
		var obj map[string]interface{}

		err := decoder.Decode(&obj)
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf(
				"%s: decode %s: %w",
				errCtx, path, err,
			)
		}

		if obj == nil {
			continue
		}

		for _, got := range annotationValues(obj, key) {
			if got != want {
				return fmt.Errorf(
					"%s: %s has %q, want %q",
					errCtx, path, got, want,
				)
			}

			found = true
		}
	}

	if !found {
		return fmt.Errorf(
			"%s: annotation %s not present in %s",
			errCtx, key, path,
		)
	}

	return nil
}

// annotationValues walks obj recursively and collects
// every value of metadata.annotations[key]. Scalar
// values are rendered with their YAML representation so
// unquoted version numbers compare as text.
func annotationValues(
	obj map[string]interface{},
	key string,
) []string {
	var values []string

	val, ok, err := unstructured.NestedFieldNoCopy(
		obj, "metadata", "annotations", key,
	)
	if err == nil && ok {
		values = append(
			values, fmt.Sprintf("%v", val),
		)
	}

	for _, v := range obj {
		switch typedVal := v.(type) {
		case map[string]interface{}:
			values = append(
				values,
				annotationValues(typedVal, key)...,
			)
		case []interface{}:
			for idx := range typedVal {
				item, ok := typedVal[idx].(map[string]interface{})
				if !ok {
					continue
				}

				values = append(
					values,
					annotationValues(item, key)...,
				)
			}
		}
	}

	return values
}
