package visit

import (
	"github.com/pkg/errors"

	"github.com/morganstanley/binlog-sub000/wire"
)

func errorsUnknownVariant(disc uint8) error {
	return errors.Wrapf(wire.ErrUnknownVariant, "discriminator %d", disc)
}

func errorsUnresolvedRef(name string) error {
	return errors.Errorf("visit: struct back-reference %q has no resolved definition", name)
}
