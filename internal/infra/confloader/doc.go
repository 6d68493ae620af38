// Package confloader loads MeshKV configuration with koanf and watches the
// configuration file with fsnotify.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap / WithFlags)
//  2. Environment variables (MESHKV_SECTION_KEY)
//  3. Configuration file (YAML)
//  4. Values already present in the target struct (defaults)
//
// Only log.level is reloaded at runtime; every other setting is fixed at
// startup.
package confloader
