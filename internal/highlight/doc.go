// Package highlight adapts the Chroma library into a highlighting engine.
//
// An [Engine] holds the languages and themes that have been loaded into it,
// and renders source code into HTML with [Engine.CodeToHTML].
// Rendered markup can be post-processed by a pipeline of [Transformer]s
// that operate on the parsed HTML tree.
//
// Languages not known to the engine must be loaded before use,
// either up front through [Core] or later with [Engine.LoadLanguage].
// [BundledLanguages] lists every language Chroma ships with.
package highlight
