package cache

import (
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "simple endpoint no params",
			key: Key{
				Base: "/subscriptions",
			},
			want: "bc:subscriptions",
		},
		{
			name: "endpoint with params",
			key: Key{
				Base:   "/subscriptions/sub-1/resources",
				Params: map[string]string{"api-version": "2023-07-01"},
			},
			want: "bc:subscriptions/sub-1/resources:api-version=2023-07-01",
		},
		{
			name: "multiple params sorted",
			key: Key{
				Base: "/subscriptions/sub-1/resources",
				Params: map[string]string{
					"api-version": "2023-07-01",
					"$filter":     "resourceType eq 'Microsoft.KeyVault/vaults'",
				},
			},
			want: "bc:subscriptions/sub-1/resources:$filter=resourceType eq 'Microsoft.KeyVault/vaults':api-version=2023-07-01",
		},
		{
			name: "batch mode caches separately",
			key: Key{
				Base:  "/servicePrincipals",
				Batch: true,
			},
			want: "bc:servicePrincipals:batch",
		},
		{
			name: "empty base",
			key: Key{
				Params: map[string]string{"a": "1"},
			},
			want: "bc:a=1",
		},
		{
			name: "deterministic ordering with many params",
			key: Key{
				Base: "/v1.0/users",
				Params: map[string]string{
					"param_z": "value_z",
					"param_a": "value_a",
					"param_m": "value_m",
				},
			},
			want: "bc:v1.0/users:param_a=value_a:param_m=value_m:param_z=value_z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("Key.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestBuildKey_PermutationIndependence ensures permuted parameter sets
// produce identical keys.
func TestBuildKey_PermutationIndependence(t *testing.T) {
	p1 := map[string]string{}
	p1["alpha"] = "1"
	p1["beta"] = "2"
	p1["gamma"] = "3"

	p2 := map[string]string{}
	p2["gamma"] = "3"
	p2["alpha"] = "1"
	p2["beta"] = "2"

	k1 := BuildKey("/resources", p1)
	k2 := BuildKey("/resources", p2)

	if k1 != k2 {
		t.Errorf("BuildKey not permutation independent: %q != %q", k1, k2)
	}
}

// TestBuildKey_ValueSensitivity ensures differing values yield different keys.
func TestBuildKey_ValueSensitivity(t *testing.T) {
	k1 := BuildKey("/resources", map[string]string{"api-version": "2023-07-01"})
	k2 := BuildKey("/resources", map[string]string{"api-version": "2024-01-01"})

	if k1 == k2 {
		t.Errorf("keys with differing values collide: %q", k1)
	}
}

func TestBuildKey_Determinism(t *testing.T) {
	params := map[string]string{
		"api-version": "2023-07-01",
		"$top":        "500",
		"$filter":     "enabled eq true",
	}

	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = BuildKey("/subscriptions/sub-1/resources", params)
	}

	first := results[0]
	for i, result := range results {
		if result != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, result, first)
		}
	}
}
