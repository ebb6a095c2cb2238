package mcpserver

// SWCFormatContract describes the SWC dialect that LLM consumers should
// produce when creating or importing morphologies.
const SWCFormatContract = `# morphovis SWC Format Contract

Every morphology stored in morphovis is a plain-text SWC file.

## Structure

` + "```" + `
# free-form comment lines start with '#'
# id type x y z radius parent
1 1 0.0 0.0 0.0 5.0 -1
2 3 0.0 5.0 0.0 1.0 1
3 3 0.0 10.0 0.0 0.8 2
` + "```" + `

## Rules

1. **Seven fields per record**, separated by spaces or tabs:
   ` + "`" + `id type x y z radius parent` + "`" + `. Extra trailing fields are ignored.
2. **ids** are unique integers. ` + "`" + `parent` + "`" + ` is an existing id, or ` + "`" + `-1` + "`" + ` for a root.
3. **type codes**: 1 soma, 2 axon, 3 basal dendrite, 4 apical dendrite.
   Arbors with any other code are skipped during analysis.
4. **Soma**: all type-1 samples together describe the soma. Neurites attach
   to a soma sample or start at their own root.
5. **Units** are micrometers for coordinates and radii.
6. A file needs at least two records and at least one root. Cycles are rejected.
7. **File paths** end with ` + "`" + `.swc` + "`" + ` and use forward slashes.
8. **Encoding** is UTF-8 or ASCII with one record per line.

## Importing

- Use ` + "`" + `import_morphology` + "`" + ` with an http(s) URL or a ` + "`" + `data:text/plain;base64,...` + "`" + ` URI.
- Loopback, private, link-local and cloud metadata hosts are refused.
- Files larger than 10 MB are refused.
- The target name must end with ` + "`" + `.swc` + "`" + `; existing files are never overwritten.

## Example

` + "```" + `
# pyramidal cell, simplified
1 1 0 0 0 8 -1
2 4 0 8 0 2 1
3 4 0 40 0 1.5 2
4 4 -10 60 0 1 3
5 4 10 60 0 1 3
6 2 0 -8 0 1 1
7 2 0 -80 0 0.5 6
8 3 8 0 0 1.2 1
9 3 30 -5 0 0.8 8
` + "```" + `
`
