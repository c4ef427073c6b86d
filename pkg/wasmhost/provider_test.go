package wasmhost

import "testing"

func TestComponentsFromMetadata(t *testing.T) {
	metadata := map[string]interface{}{
		"components": []interface{}{
			map[string]interface{}{
				"name":    "reverse",
				"inputs":  []interface{}{"input"},
				"outputs": []interface{}{"output"},
			},
		},
	}

	sigs := componentsFromMetadata(metadata)
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(sigs))
	}
	if sigs[0].Name != "reverse" {
		t.Fatalf("expected reverse, got %s", sigs[0].Name)
	}
	if len(sigs[0].Inputs) != 1 || sigs[0].Inputs[0].Name != "input" {
		t.Fatalf("unexpected inputs: %+v", sigs[0].Inputs)
	}
	if len(sigs[0].Outputs) != 1 || sigs[0].Outputs[0].Name != "output" {
		t.Fatalf("unexpected outputs: %+v", sigs[0].Outputs)
	}
}

func TestComponentsFromMetadataMissing(t *testing.T) {
	if sigs := componentsFromMetadata(map[string]interface{}{}); sigs != nil {
		t.Fatalf("expected nil for absent components key, got %+v", sigs)
	}
}
