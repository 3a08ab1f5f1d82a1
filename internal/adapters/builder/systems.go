package builder

import "go.trai.ch/sprig/internal/core/domain"

// defaultCommands are the phase commands of each build system. Commands run
// in the source directory with the build environment.
var defaultCommands = map[string]map[domain.Phase][]string{
	domain.BuildSystemAutotools: {
		domain.PhaseConfigure: {`./configure --prefix="$PREFIX" $SPRIG_CONFIGURE_ARGS`},
		domain.PhaseBuild:     {`make -j"$SPRIG_JOBS"`},
		domain.PhaseInstall:   {`make install`},
	},
	domain.BuildSystemCMake: {
		domain.PhaseConfigure: {`cmake -S . -B "$SPRIG_BUILD_DIR" -DCMAKE_INSTALL_PREFIX="$PREFIX" -DCMAKE_BUILD_TYPE=Release $SPRIG_CONFIGURE_ARGS`},
		domain.PhaseBuild:     {`cmake --build "$SPRIG_BUILD_DIR" --parallel "$SPRIG_JOBS"`},
		domain.PhaseInstall:   {`cmake --install "$SPRIG_BUILD_DIR"`},
	},
	domain.BuildSystemMakefile: {
		domain.PhaseBuild:   {`make -j"$SPRIG_JOBS" PREFIX="$PREFIX"`},
		domain.PhaseInstall: {`make install PREFIX="$PREFIX"`},
	},
	domain.BuildSystemGeneric: {},
}

// commandsFor returns the commands of phase: the package's override if it
// declares one, else the build system default.
func commandsFor(pkg *domain.Package, phase domain.Phase) []string {
	for _, o := range pkg.Phases {
		if o.Phase == phase {
			return o.Commands
		}
	}
	return defaultCommands[pkg.BuildSystem][phase]
}
