package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseJSON reads a dataset from a JSON file
// Example:
//
//	{
//	  "subscriptions": [
//	    {"name": "Netflix", "amount": 9.99, "currency": "EUR",
//	     "startsOn": "2023-01-15", "repeatMode": "month", "repeatInterval": 1}
//	  ],
//	  "budgets": [{"name": "Food", "amount": 400, "month": "2024-06-01"}],
//	  "expenses": [{"payee": "Grocer", "amount": 23.5, "date": "2024-06-03", "budgetId": "..."}]
//	}
func ParseJSON(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading file: %w", err)
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parsing JSON: %w", err)
	}
	return ds, nil
}

// ParseYAML reads a dataset from a YAML file. Keys are snake_case
// (starts_on, repeat_mode, repeat_interval, budget_id).
func ParseYAML(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading file: %w", err)
	}

	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parsing YAML: %w", err)
	}
	return ds, nil
}
