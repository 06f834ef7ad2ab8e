package platform

import (
	"fmt"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/provider"
)

// Plan priority classes. Variables and default code environments order
// before everything since other resources depend on their settings; git
// libraries and zones next; then the data objects placed in them;
// foreign references before the recipes that consume them; exposure
// rules after the objects they share; scenarios last.
const (
	PriorityVariables     = 0
	PriorityCodeEnv       = 5
	PriorityGitLibrary    = 10
	PriorityZone          = 10
	PriorityDataset       = 50
	PriorityManagedFolder = 50
	PriorityForeign       = 90
	PriorityRecipe        = 100
	PriorityExposed       = 150
	PriorityScenario      = 200
)

// Register wires all platform resource types into the registry.
func Register(reg *provider.Registry, client *Client) error {
	registrations := []provider.Registration{
		{
			Type:     "variables",
			Priority: PriorityVariables,
			Handler:  &singletonHandler{client: client, kind: "variables"},
		},
		{
			Type:     "code_env",
			Priority: PriorityCodeEnv,
			Handler:  &singletonHandler{client: client, kind: "code-env"},
		},
		{
			Type:     "git_library",
			Priority: PriorityGitLibrary,
			Handler:  &itemHandler{client: client, kind: "git-libraries"},
			Validate: gitLibraryValidate,
		},
		{
			Type:     "zone",
			Priority: PriorityZone,
			Handler:  &itemHandler{client: client, kind: "zones"},
		},
		{
			Type:       "dataset",
			Priority:   PriorityDataset,
			Handler:    &itemHandler{client: client, kind: "datasets"},
			References: datasetReferences,
			Validate:   datasetValidate,
		},
		{
			Type:       "managed_folder",
			Priority:   PriorityManagedFolder,
			Handler:    &itemHandler{client: client, kind: "managed-folders"},
			References: zoneReference,
		},
		{
			Type:     "foreign_dataset",
			Priority: PriorityForeign,
			Handler:  &itemHandler{client: client, kind: "foreign-datasets"},
			Validate: foreignDatasetValidate,
			Provides: foreignDatasetProvides,
		},
		{
			Type:       "recipe",
			Priority:   PriorityRecipe,
			Handler:    &itemHandler{client: client, kind: "recipes"},
			References: recipeReferences,
			Validate:   recipeValidate,
		},
		{
			Type:       "exposed_dataset",
			Priority:   PriorityExposed,
			Handler:    &itemHandler{client: client, kind: "exposed-datasets"},
			References: exposedDatasetReferences,
			Validate:   exposedObjectValidate,
		},
		{
			Type:       "exposed_folder",
			Priority:   PriorityExposed,
			Handler:    &itemHandler{client: client, kind: "exposed-folders"},
			References: exposedFolderReferences,
			Validate:   exposedObjectValidate,
		},
		{
			Type:       "scenario",
			Priority:   PriorityScenario,
			Handler:    &itemHandler{client: client, kind: "scenarios"},
			References: scenarioReferences,
		},
	}

	for _, r := range registrations {
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// zoneReference derives the implicit zone dependency from the zone
// attribute, shared by datasets and managed folders.
func zoneReference(r *ir.Resource) []string {
	var refs []string
	if zone, ok := r.Attributes["zone"].(string); ok && zone != "" {
		refs = append(refs, "zone."+zone)
	}
	return refs
}

func datasetReferences(r *ir.Resource) []string {
	return zoneReference(r)
}

func datasetValidate(r *ir.Resource) []string {
	var msgs []string
	if _, ok := r.Attributes["zone"].(string); !ok {
		msgs = append(msgs, "dataset requires a zone attribute")
	}
	return msgs
}

// foreignDatasetProvides puts a declared cross-project dataset into the
// dataset namespace, so recipes consume it by name like a local one.
func foreignDatasetProvides(r *ir.Resource) []string {
	return []string{"dataset." + r.Name}
}

func foreignDatasetValidate(r *ir.Resource) []string {
	var msgs []string
	for _, key := range []string{"source_project", "source_name"} {
		if s, ok := r.Attributes[key].(string); !ok || s == "" {
			msgs = append(msgs, fmt.Sprintf("foreign dataset requires a %s attribute", key))
		}
	}
	return msgs
}

func gitLibraryValidate(r *ir.Resource) []string {
	var msgs []string
	if s, ok := r.Attributes["repository"].(string); !ok || s == "" {
		msgs = append(msgs, "git library requires a repository attribute")
	}
	return msgs
}

// recipeReferences derives dependencies on the datasets a recipe reads
// and writes, and on its zone when set.
func recipeReferences(r *ir.Resource) []string {
	var refs []string
	for _, key := range []string{"inputs", "outputs"} {
		for _, name := range stringList(r.Attributes[key]) {
			refs = append(refs, "dataset."+name)
		}
	}
	return append(refs, zoneReference(r)...)
}

func recipeValidate(r *ir.Resource) []string {
	var msgs []string
	for _, key := range []string{"inputs", "outputs"} {
		v, ok := r.Attributes[key]
		if !ok {
			continue
		}
		list, isList := v.([]any)
		if !isList {
			msgs = append(msgs, fmt.Sprintf("%s must be a list of dataset names", key))
			continue
		}
		for _, item := range list {
			if _, isStr := item.(string); !isStr {
				msgs = append(msgs, fmt.Sprintf("%s entries must be dataset names", key))
				break
			}
		}
	}
	return msgs
}

// exposedDatasetReferences ties a sharing rule to the local dataset it
// exposes, which shares the rule's name.
func exposedDatasetReferences(r *ir.Resource) []string {
	return []string{"dataset." + r.Name}
}

func exposedFolderReferences(r *ir.Resource) []string {
	return []string{"managed_folder." + r.Name}
}

func exposedObjectValidate(r *ir.Resource) []string {
	targets := stringList(r.Attributes["target_projects"])
	if len(targets) == 0 {
		return []string{"exposure requires at least one entry in target_projects"}
	}
	return nil
}

// scenarioReferences derives dependencies on the recipes a scenario
// runs.
func scenarioReferences(r *ir.Resource) []string {
	var refs []string
	for _, name := range stringList(r.Attributes["recipes"]) {
		refs = append(refs, "recipe."+name)
	}
	return refs
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
