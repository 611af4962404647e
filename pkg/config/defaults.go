package config

func boolPtr(b bool) *bool { return &b }

// Default is the stack used when no stackctl.yaml exists: a database, an API,
// a workflow engine with an optional browser worker, and a reverse proxy in front.
func Default() *File {
	f := &File{
		Project: "stack",
		Runtime: RuntimeDocker,
		Services: []Service{
			{
				Name:                  "db",
				StartupTimeoutSeconds: 60,
				Probe:                 Probe{Kind: ProbeCommand, Command: []string{"pg_isready", "-U", "postgres"}},
			},
			{
				Name:      "api",
				DependsOn: []string{"db"},
				Probe:     Probe{Kind: ProbeHTTP, Port: 8000, Path: "/health"},
			},
			{
				Name:      "workflow",
				DependsOn: []string{"db", "api", "browser"},
				Probe:     Probe{Kind: ProbeHTTP, Port: 5678, Path: "/healthz"},
			},
			{
				Name:    "browser",
				Enabled: boolPtr(false),
				Probe:   Probe{Kind: ProbePort, Port: 3000},
			},
			{
				Name:                  "proxy",
				DependsOn:             []string{"api", "workflow"},
				StartupTimeoutSeconds: 30,
				Probe:                 Probe{Kind: ProbePort, Port: 80},
			},
		},
		Recovery: Recovery{
			Watch: []string{"db", "api", "workflow", "proxy"},
		},
	}
	f.ApplyDefaults()
	return f
}
