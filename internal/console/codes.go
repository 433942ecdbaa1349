package console

// Message codes emitted by the decompilation core. Parameters are listed in
// the order they appear in Entry.Params.
const (
	// CodeUnspecifiedPath: no parameters.
	CodeUnspecifiedPath = "error.unspecified-jad-path"
	// CodePathNotFound: executable path.
	CodePathNotFound = "error.non-existant-jad-path"
	// CodeInvalidPath: executable path.
	CodeInvalidPath = "error.invalid-jad-path"
	// CodeOutputDir: directory, error.
	CodeOutputDir = "error.output-dir-create"
	// CodeExtract: archive entry, archive path, error.
	CodeExtract = "error.extract-class"
	// CodeLaunch: command line, error.
	CodeLaunch = "error.launch"
	// CodeProcessExit: class name, exit code, stderr tail.
	CodeProcessExit = "error.decompiler-exit"
	// CodeNoOutput: class name.
	CodeNoOutput = "error.no-output"
	// CodeTimeout: class name, timeout.
	CodeTimeout = "error.timeout"
	// CodeWriteOutput: output path, error.
	CodeWriteOutput = "error.write-output"
	// CodePumpIO: stream name, error.
	CodePumpIO = "error.pump-io"

	// CodeDecompiling: class name, command line.
	CodeDecompiling = "info.decompiling"
	// CodeDecompiled: class name, output path.
	CodeDecompiled = "info.decompiled"
	// CodeExcluded: class name, matching rule prefix.
	CodeExcluded = "info.excluded"
	// CodeCancelled: class name.
	CodeCancelled = "info.cancelled"
	// CodeReconfigured: config file path.
	CodeReconfigured = "info.reconfigured"
)
