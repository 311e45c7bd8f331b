package wcf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid WCF magic")
	ErrUnsupportedMajor = errors.New("unsupported WCF major version")
	ErrCorruptFile      = errors.New("corrupt WCF file")

	errFinalised   = errors.New("wcf: writer already finalised")
	errSectionOpen = errors.New("wcf: section write in progress")
	errDuplicate   = errors.New("wcf: duplicate section type")
	errEnded       = errors.New("wcf: section writer ended")
	errNotActive   = errors.New("wcf: section writer not active")
)
