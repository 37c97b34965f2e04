// Config file loading: a FromReader core that decodes JSON, and a thin
// path wrapper that opens the file for it.
package citydata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Uriopass/Egregoria-sub002/agent"
)

// assetRootEnv is the single environment variable that overrides where
// data files are looked up.
const assetRootEnv = "CITYSIM_DATA"

// AssetRoot returns the asset/data root directory, "data" unless
// overridden by the environment.
func AssetRoot() string {
	if v := os.Getenv(assetRootEnv); v != "" {
		return v
	}
	return "data"
}

// LoadVehicleKindsFromReader decodes a name -> kind-parameters table.
func LoadVehicleKindsFromReader(r io.Reader) (map[string]agent.Kind, error) {
	var kinds map[string]agent.Kind
	if err := json.NewDecoder(r).Decode(&kinds); err != nil {
		return nil, fmt.Errorf("citydata: decode vehicle kinds: %w", err)
	}
	for name, k := range kinds {
		if k.CruisingSpeed <= 0 || k.Width <= 0 {
			return nil, fmt.Errorf("citydata: vehicle kind %q: cruising speed and width must be positive", name)
		}
	}
	return kinds, nil
}

// LoadVehicleKinds reads the named file under AssetRoot.
func LoadVehicleKinds(name string) (map[string]agent.Kind, error) {
	f, err := os.Open(filepath.Join(AssetRoot(), name))
	if err != nil {
		return nil, fmt.Errorf("citydata: open vehicle kinds: %w", err)
	}
	defer f.Close()
	return LoadVehicleKindsFromReader(f)
}

// LoadRecipesFromReader decodes a name -> goods-recipe table.
func LoadRecipesFromReader(r io.Reader) (map[string]Recipe, error) {
	var recipes map[string]Recipe
	if err := json.NewDecoder(r).Decode(&recipes); err != nil {
		return nil, fmt.Errorf("citydata: decode recipes: %w", err)
	}
	for name, rec := range recipes {
		if rec.Complexity < 0 {
			return nil, fmt.Errorf("citydata: recipe %q: negative complexity", name)
		}
	}
	return recipes, nil
}

// LoadRecipes reads the named file under AssetRoot.
func LoadRecipes(name string) (map[string]Recipe, error) {
	f, err := os.Open(filepath.Join(AssetRoot(), name))
	if err != nil {
		return nil, fmt.Errorf("citydata: open recipes: %w", err)
	}
	defer f.Close()
	return LoadRecipesFromReader(f)
}
