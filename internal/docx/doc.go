// Package docx reads, repairs, fills and converts word-processing templates.
//
// # Pipeline
//
// A template goes through three steps before it reaches the HTML composer:
//
//	Open(data)            - unzip the package, keep every entry in order
//	RepairPackage(pkg)    - normalize {{ }} delimiters split across runs
//	Renderer.Render(pkg)  - substitute merge fields, expand sections
//	ToHTML(pkg)           - convert word/document.xml to semantic HTML
//
// Repair works on the raw markup as a token scanner and never parses XML,
// so malformed documents degrade instead of failing. Rendering and
// conversion assume repaired markup.
//
// # Merge Fields
//
//	{{name}}              simple field, missing keys render as ""
//	{{#items}}...{{/items}} section, repeats for lists, shows for truthy values
//	{{^items}}...{{/items}} inverted section, shows for falsy values
//
// A section whose open and close tags each sit alone in their own paragraph
// repeats the paragraphs between them (paragraph loop). Otherwise it repeats
// inline (line loop).
package docx
