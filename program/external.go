package program

// UnknownLibrary is the namespace for imports whose providing library is
// not known.
const UnknownLibrary = "<EXTERNAL>"

type ExternalFunction struct {
	Library string
	Name    string
	Source  SourceType
}

// ExternalManager tracks the libraries an image links against and the
// external function declarations imports thunk to.
type ExternalManager struct {
	order     []string
	libraries map[string]struct{}
	functions map[string]*ExternalFunction
}

func newExternalManager() *ExternalManager {
	return &ExternalManager{
		libraries: make(map[string]struct{}),
		functions: make(map[string]*ExternalFunction),
	}
}

// SetExternalPath registers a needed library name.
func (em *ExternalManager) SetExternalPath(name string) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	if _, ok := em.libraries[name]; !ok {
		em.libraries[name] = struct{}{}
		em.order = append(em.order, name)
	}
	return nil
}

// Libraries returns the registered library names in registration order.
func (em *ExternalManager) Libraries() []string {
	return em.order
}

// AddFunction declares an external function in the given library namespace.
// An identical existing declaration is returned instead of duplicated.
func (em *ExternalManager) AddFunction(library, name string, source SourceType) (*ExternalFunction, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	key := library + "::" + name
	if f, ok := em.functions[key]; ok {
		return f, nil
	}
	f := &ExternalFunction{Library: library, Name: name, Source: source}
	em.functions[key] = f
	return f, nil
}

func (em *ExternalManager) Function(library, name string) *ExternalFunction {
	return em.functions[library+"::"+name]
}

func (em *ExternalManager) FunctionCount() int {
	return len(em.functions)
}
