package mkimage

import (
	"encoding/binary"
	"fmt"

	"github.com/yasos/elftoyaff/pkg/elfmodel"
	"github.com/yasos/elftoyaff/pkg/utils"
)

// Region is one contiguous piece of the module address space together with
// a private copy of its bytes.
type Region struct {
	Name    string
	Address uint32
	Data    []byte

	// Sections that were merged into this region, in order.
	Sections []*elfmodel.Section
}

func (r *Region) Size() uint32 {
	return uint32(len(r.Data))
}

func (r *Region) End() uint32 {
	return r.Address + r.Size()
}

func (r *Region) Contains(addr uint32) bool {
	return addr >= r.Address && addr < r.End()
}

func (r *Region) Present() bool {
	return len(r.Sections) > 0
}

// HasSection reports whether a section with index idx was merged into r.
func (r *Region) HasSection(idx uint16) bool {
	for _, s := range r.Sections {
		if s.Index == idx {
			return true
		}
	}
	return false
}

// Word returns the little-endian word at addr.
func (r *Region) Word(addr uint32) (uint32, bool) {
	if addr < r.Address || uint64(addr)+4 > uint64(r.End()) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(r.Data[addr-r.Address:]), true
}

// Layout is the validated placement of every section the loader knows.
// Data holds .rodata (when present) followed by .data.
type Layout struct {
	Text       Region
	InitArrays Region
	Plt        Region
	Data       Region
	Bss        Region
	Got        Region
	GotPlt     Region
	ArmExtab   Region
	ArmExidx   Region
}

// Payload lists the regions copied into the image, in image order.
func (l *Layout) Payload() []*Region {
	return []*Region{&l.Text, &l.InitArrays, &l.Plt, &l.Data, &l.Got, &l.GotPlt, &l.ArmExtab, &l.ArmExidx}
}

// WordAt reads a word from whichever loaded region contains addr.
func (l *Layout) WordAt(addr uint32) (uint32, error) {
	for _, r := range l.Payload() {
		if !r.Contains(addr) {
			continue
		}
		if w, ok := r.Word(addr); ok {
			return w, nil
		}
		return 0, fmt.Errorf("word at %#x crosses the end of %s", addr, r.Name)
	}
	if l.Bss.Contains(addr) {
		return 0, fmt.Errorf("address %#x lies in .bss", addr)
	}
	return 0, fmt.Errorf("address %#x is outside of every section", addr)
}

type layoutPlanner struct {
	in  Input
	pos uint32
	log *utils.Logger
}

func (p *layoutPlanner) fetch(name string, required bool) (*elfmodel.Section, error) {
	s := p.in.Section(name)
	if s == nil {
		if required {
			return nil, &LayoutError{Section: name, Missing: true, Existing: p.in.SectionNames()}
		}
		p.log.Info("Section '%s' not found in ELF", name)
		return nil, nil
	}

	if s.Address != p.pos {
		return nil, &LayoutError{Section: name, Expected: p.pos, Actual: s.Address}
	}

	p.log.Info("Found '%s' with size: %#x", name, s.Size)
	p.pos += s.Size
	return s, nil
}

func (p *layoutPlanner) region(name string, required bool) (Region, error) {
	r := Region{Name: name, Address: p.pos}
	s, err := p.fetch(name, required)
	if err != nil || s == nil {
		return r, err
	}
	r.Sections = []*elfmodel.Section{s}
	r.Data = sectionBytes(s)
	return r, nil
}

// sectionBytes copies s into a buffer of exactly s.Size bytes.
func sectionBytes(s *elfmodel.Section) []byte {
	data := make([]byte, s.Size)
	copy(data, s.Data)
	return data
}

// PlanLayout fetches the sections in load order and checks that each one
// starts exactly where the previous one ended, .text being at 0.
func PlanLayout(in Input, log *utils.Logger) (*Layout, error) {
	log.Step("Fetching sections")
	p := &layoutPlanner{in: in, log: log}
	l := &Layout{}
	var err error

	if l.Text, err = p.region(".text", true); err != nil {
		return nil, err
	}

	// PIE .rodata must be writable to hold relocated pointers before main
	// runs, so it goes to the data region.
	rodata := in.Section(".rodata")

	if l.InitArrays, err = p.region(".init_arrays", false); err != nil {
		return nil, err
	}
	if l.Plt, err = p.region(".plt", false); err != nil {
		return nil, err
	}

	l.Data = Region{Name: ".data", Address: p.pos}
	if rodata != nil {
		log.Info("Found '.rodata' with size: %#x, merged into .data", rodata.Size)
		l.Data.Sections = append(l.Data.Sections, rodata)
		l.Data.Data = append(l.Data.Data, sectionBytes(rodata)...)
		p.pos += rodata.Size
	}
	data, err := p.fetch(".data", true)
	if err != nil {
		return nil, err
	}
	l.Data.Sections = append(l.Data.Sections, data)
	l.Data.Data = append(l.Data.Data, sectionBytes(data)...)

	if l.Bss, err = p.region(".bss", true); err != nil {
		return nil, err
	}
	if l.Got, err = p.region(".got", false); err != nil {
		return nil, err
	}
	if l.GotPlt, err = p.region(".got.plt", false); err != nil {
		return nil, err
	}
	if l.ArmExtab, err = p.region(".ARM.extab", false); err != nil {
		return nil, err
	}
	if l.ArmExidx, err = p.region(".ARM.exidx", false); err != nil {
		return nil, err
	}
	return l, nil
}
