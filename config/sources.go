package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/nodeid"
	"github.com/zero-day-ai/nodeid/source"
)

// DefaultSourceBehaviors is applied to a source that declares no behaviors.
const DefaultSourceBehaviors = "+select +node"

// SourcesFile is a static description of entity sources, used where no live
// introspection is available (the CLI, fixtures).
//
// Sources naming the same namespace and shape share one shape:
//
//	sources:
//	  - name: users
//	    namespace: app_public
//	    columns: [id, email]
//	    primary_key: [id]
//	  - name: jwt_token
//	    namespace: app_public
//	    columns: [role, user_id, exp]
//	    shape_behaviors: "+jwt"
//	    behaviors: "-node"
type SourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig describes one entity source.
type SourceConfig struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace,omitempty"`

	// Shape names the output shape. Default: Name
	Shape string `yaml:"shape,omitempty"`

	// Columns of the shape. Only the first source declaring a shape sets them.
	Columns []string `yaml:"columns,omitempty"`

	Anonymous     bool `yaml:"anonymous,omitempty"`
	HasParameters bool `yaml:"has_parameters,omitempty"`

	PrimaryKey []string   `yaml:"primary_key,omitempty"`
	Uniques    [][]string `yaml:"uniques,omitempty"`

	// Behaviors in "+select -update" form.
	// Default: +select +node
	Behaviors string `yaml:"behaviors,omitempty"`

	// ShapeBehaviors are declared on the shape, e.g. "+jwt".
	ShapeBehaviors string `yaml:"shape_behaviors,omitempty"`

	OriginalName     string            `yaml:"original_name,omitempty"`
	Deprecated       []string          `yaml:"deprecated,omitempty"`
	ShapeDeprecation []string          `yaml:"shape_deprecation,omitempty"`
	Tags             map[string]string `yaml:"tags,omitempty"`
}

func (s SourceConfig) shapeName() string {
	if s.Shape == "" {
		return s.Name
	}
	return s.Shape
}

// ParseSources decodes a sources document into descriptors. Getters are left
// unset; bind them with redissource.Store.Bind or by hand.
func ParseSources(data []byte) ([]*source.Descriptor, error) {
	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse sources file: %v", nodeid.ErrInvalidConfig, err)
	}

	var errs []error
	shapes := make(map[string]*source.Shape)
	descriptors := make([]*source.Descriptor, 0, len(file.Sources))

	for i, sc := range file.Sources {
		if sc.Name == "" {
			errs = append(errs, fmt.Errorf("sources[%d].name: required", i))
			continue
		}

		spec := sc.Behaviors
		if spec == "" {
			spec = DefaultSourceBehaviors
		}
		behaviors, err := source.ParseBehaviors(spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("sources[%d].behaviors: %w", i, err))
			continue
		}

		shapeKey := sc.Namespace + "." + sc.shapeName()
		shape, ok := shapes[shapeKey]
		if !ok {
			shapeBehaviors, err := source.ParseBehaviors(sc.ShapeBehaviors)
			if err != nil {
				errs = append(errs, fmt.Errorf("sources[%d].shape_behaviors: %w", i, err))
				continue
			}
			shape = &source.Shape{
				Namespace:   sc.Namespace,
				Name:        sc.shapeName(),
				Columns:     sc.Columns,
				IsAnonymous: sc.Anonymous,
				Behaviors:   shapeBehaviors,
				Deprecation: sc.ShapeDeprecation,
			}
			shapes[shapeKey] = shape
		}

		d := &source.Descriptor{
			Name:          sc.Name,
			Shape:         shape,
			HasParameters: sc.HasParameters,
			Behaviors:     behaviors,
			Tags: source.Tags{
				OriginalName: sc.OriginalName,
				Deprecated:   sc.Deprecated,
				Extra:        sc.Tags,
			},
		}
		if len(sc.PrimaryKey) > 0 {
			d.Uniques = append(d.Uniques, source.Unique{Columns: sc.PrimaryKey, IsPrimary: true})
		}
		for _, u := range sc.Uniques {
			d.Uniques = append(d.Uniques, source.Unique{Columns: u})
		}
		descriptors = append(descriptors, d)
	}

	if len(errs) > 0 {
		return nil, nodeid.NewConfigurationError("config.ParseSources",
			fmt.Errorf("%w: %w", nodeid.ErrInvalidConfig, errors.Join(errs...)))
	}
	return descriptors, nil
}

// LoadSources reads and parses a sources file.
func LoadSources(path string) ([]*source.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return ParseSources(data)
}
