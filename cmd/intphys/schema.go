package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/AaronLay10/IntPhysDirector/internal/capture"
	"github.com/AaronLay10/IntPhysDirector/internal/scene"
)

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	scenes := reflector.Reflect(new(scene.Spec))
	scenes.Title = "intphys scenes file"
	scenes.Description = "Number of scenes to render per category. Test and dev scenes are listed per scenario then visibility then movement."

	status := reflector.Reflect(new(capture.Status))
	status.Title = "intphys run status"
	status.Description = "Header of a rendered run and the per-frame status of its actors."

	return map[string]*jsonschema.Schema{
		"scenes.schema.json": scenes,
		"status.schema.json": status,
	}
}

func runSchema(outDir string) error {
	for name, schema := range buildSchemas() {
		path := filepath.Join(outDir, name)
		if err := writeSchema(path, schema); err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
