package gametime

// IndexVar returns the value of a solver temporary recorded by the parser.
func (m *Model) IndexVar(name string) (Value, bool) {
	v, ok := m.indexVars.Get(name)
	if !ok {
		return Value{}, false
	}
	return v.(Value), true
}

// IndexVarNames returns the names of all recorded solver temporaries.
func (m *Model) IndexVarNames() []string {
	return sortedKeys(m.indexVars)
}

// Classify returns the shape of name under config.
func Classify(config Config, name string) NameShape {
	return newNameClassifier(config).classify(name)
}
