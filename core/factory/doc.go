// Package factory builds pluggable components from configuration. A component
// is described by a ModuleConfig: the registered type name plus the raw
// settings map found in the config file. Metrics sinks and journal backends
// are created this way, so a new backend only needs a Register call from an
// init function.
//
//	backends := factory.NewRegistry[journal.Store]()
//	backends.MustRegister("sqlite", func(conf map[string]any) (journal.Store, error) {
//		var c struct{ Path string `json:"path"` }
//		if err := factory.Decode(conf, &c); err != nil {
//			return nil, err
//		}
//		return journal.NewSQLiteStore(c.Path)
//	})
package factory
