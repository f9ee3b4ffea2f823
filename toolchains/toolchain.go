package toolchains

// Default versions applied when the caller does not pin one.
const (
	DefaultJUnit4Version     = "4.13.2"
	DefaultJupiterVersion    = "5.10.2"
	DefaultTestNGVersion     = "7.5"
	DefaultSpockVersion      = "2.2-groovy-3.0"
	DefaultKotlinTestVersion = "1.9.22"
)

// Built-in variant names.
const (
	JUnit4       = "junit4"
	JUnit4Legacy = "junit4-legacy"
	Jupiter      = "jupiter"
	TestNG       = "testng"
	Spock        = "spock"
	KotlinTest   = "kotlin-test"
)

// Framework describes how the recorded test classes are executed.
type Framework struct {
	// Name identifies the execution framework, e.g. "junit-platform".
	Name string

	// EntryModule is the module the runner loads to drive execution.
	// Zero for legacy variants whose runner ships with the build tool.
	EntryModule Dependency
}

// Toolchain is one test-framework variant. All variants expose the same
// capability set so suites select them by name, never by type.
type Toolchain interface {
	// Name is the variant key, e.g. "jupiter".
	Name() string

	// Version is the resolved framework version.
	Version() string

	// ImplementationDependencies are added to the suite's implementation
	// configuration.
	ImplementationDependencies() []Dependency

	// RuntimeOnlyDependencies are added to the suite's runtimeOnly
	// configuration.
	RuntimeOnlyDependencies() []Dependency

	// CompileOnlyDependencies are added to the suite's compileOnly
	// configuration.
	CompileOnlyDependencies() []Dependency

	// Framework describes the runner for this variant.
	Framework() Framework
}

// Factory constructs a variant for a version. An empty version selects the
// variant's default.
type Factory func(version string) Toolchain

// toolchain is the single concrete variant shape. Variants differ only in
// data, not behavior.
type toolchain struct {
	name        string
	version     string
	impl        []Dependency
	runtimeOnly []Dependency
	compileOnly []Dependency
	framework   Framework
}

func (t *toolchain) Name() string                             { return t.name }
func (t *toolchain) Version() string                          { return t.version }
func (t *toolchain) ImplementationDependencies() []Dependency { return t.impl }
func (t *toolchain) RuntimeOnlyDependencies() []Dependency    { return t.runtimeOnly }
func (t *toolchain) CompileOnlyDependencies() []Dependency    { return t.compileOnly }
func (t *toolchain) Framework() Framework                     { return t.framework }

var _ Toolchain = (*toolchain)(nil)

var junitPlatform = Framework{
	Name:        "junit-platform",
	EntryModule: Dependency{Group: "org.junit.platform", Name: "junit-platform-launcher"},
}

// builtinFactories enumerates the variants every registry starts with.
func builtinFactories() map[string]Factory {
	return map[string]Factory{
		JUnit4: func(version string) Toolchain {
			if version == "" {
				version = DefaultJUnit4Version
			}
			return &toolchain{
				name:    JUnit4,
				version: version,
				impl: []Dependency{
					{Group: "junit", Name: "junit", Version: version},
				},
				runtimeOnly: []Dependency{
					{Group: "org.junit.vintage", Name: "junit-vintage-engine"},
				},
				framework: junitPlatform,
			}
		},
		// The legacy variant adds no coordinates: the runner and framework
		// ship with the build tool for compatibility with old suites.
		JUnit4Legacy: func(version string) Toolchain {
			if version == "" {
				version = DefaultJUnit4Version
			}
			return &toolchain{
				name:      JUnit4Legacy,
				version:   version,
				framework: Framework{Name: "junit4"},
			}
		},
		Jupiter: func(version string) Toolchain {
			if version == "" {
				version = DefaultJupiterVersion
			}
			return &toolchain{
				name:    Jupiter,
				version: version,
				impl: []Dependency{
					{Group: "org.junit.jupiter", Name: "junit-jupiter", Version: version},
				},
				runtimeOnly: []Dependency{
					{Group: "org.junit.platform", Name: "junit-platform-launcher"},
				},
				framework: junitPlatform,
			}
		},
		TestNG: func(version string) Toolchain {
			if version == "" {
				version = DefaultTestNGVersion
			}
			return &toolchain{
				name:    TestNG,
				version: version,
				impl: []Dependency{
					{Group: "org.testng", Name: "testng", Version: version},
				},
				runtimeOnly: []Dependency{
					{Group: "org.junit.support", Name: "testng-engine"},
				},
				framework: junitPlatform,
			}
		},
		Spock: func(version string) Toolchain {
			if version == "" {
				version = DefaultSpockVersion
			}
			return &toolchain{
				name:    Spock,
				version: version,
				impl: []Dependency{
					{Group: "org.spockframework", Name: "spock-core", Version: version},
				},
				runtimeOnly: []Dependency{
					{Group: "org.junit.platform", Name: "junit-platform-launcher"},
				},
				framework: junitPlatform,
			}
		},
		KotlinTest: func(version string) Toolchain {
			if version == "" {
				version = DefaultKotlinTestVersion
			}
			return &toolchain{
				name:    KotlinTest,
				version: version,
				impl: []Dependency{
					{Group: "org.jetbrains.kotlin", Name: "kotlin-test-junit5", Version: version},
				},
				runtimeOnly: []Dependency{
					{Group: "org.junit.platform", Name: "junit-platform-launcher"},
				},
				framework: junitPlatform,
			}
		},
	}
}
