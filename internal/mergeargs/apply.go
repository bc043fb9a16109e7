package mergeargs

import "github.com/hanpama/graphstitch/internal/properties"

// Key projects the used properties out of a fetched object.
func (p *ParsedExpr) Key(result map[string]any) any {
	return properties.GetProperties(result, p.UsedProperties)
}

// ArgsFor builds the arguments for one fetched object.
func (p *ParsedExpr) ArgsFor(result map[string]any) map[string]any {
	args := p.template()
	filtered := properties.GetProperties(result, p.UsedProperties)
	for _, in := range p.MappingInstructions {
		properties.AddProperty(args, in.DestinationPath, properties.GetProperty(filtered, in.SourcePath))
	}
	return args
}

// ArgsFromKeys builds the arguments for a batch of keys. The expanded lists
// follow the order of keys.
func (p *ParsedExpr) ArgsFromKeys(keys []any) map[string]any {
	args := p.template()
	for _, exp := range p.Expansions {
		expanded := make([]any, 0, len(keys))
		for _, key := range keys {
			item := properties.DeepCopy(exp.Value)
			for _, in := range exp.MappingInstructions {
				v := properties.GetProperty(key, in.SourcePath)
				if len(in.DestinationPath) == 0 {
					item = properties.DeepCopy(v)
					continue
				}
				m, ok := item.(map[string]any)
				if !ok {
					m = map[string]any{}
				}
				properties.AddProperty(m, in.DestinationPath, v)
				item = m
			}
			expanded = append(expanded, item)
		}
		properties.AddProperty(args, exp.ValuePath, expanded)
	}
	return args
}

func (p *ParsedExpr) template() map[string]any {
	if p.Args == nil {
		return map[string]any{}
	}
	return properties.DeepCopy(p.Args).(map[string]any)
}
