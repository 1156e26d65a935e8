// Package formats parses the model formats the loader understands: Ragnarok
// Online RSM resource models and glTF 2.0 (.gltf and .glb).
//
// Strings inside RO files are EUC-KR; helpers in names.go convert them.
package formats
