package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	twvm "github.com/Becavalier/TWVM"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var _ = ginkgo.Describe("interactiveModel", func() {
	var m *interactiveModel

	press := func(msgs ...tea.Msg) {
		for _, msg := range msgs {
			next, _ := m.Update(msg)
			m = next.(*interactiveModel)
		}
	}

	ginkgo.BeforeEach(func() {
		inst, err := twvm.PrepareBytes(context.Background(), sampleModule().Encode(), nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		m = newInteractiveModel("module.wasm", inst)
	})

	ginkgo.It("starts on the types tab", func() {
		gomega.Expect(m.sections[m.tab].name).To(gomega.Equal("types"))
		gomega.Expect(m.visible).To(gomega.HaveLen(2))
		gomega.Expect(m.View()).To(gomega.ContainSubstring("TWVM Explorer"))
	})

	ginkgo.It("switches tabs in both directions and wraps", func() {
		press(tea.KeyMsg{Type: tea.KeyTab})
		gomega.Expect(m.sections[m.tab].name).To(gomega.Equal("functions"))
		gomega.Expect(m.visible).To(gomega.HaveLen(3))

		press(runes("h"), runes("h"))
		gomega.Expect(m.sections[m.tab].name).To(gomega.Equal("entry"))
	})

	ginkgo.It("moves the cursor within bounds", func() {
		press(tea.KeyMsg{Type: tea.KeyTab})
		press(runes("j"), runes("j"), runes("j"), runes("j"))
		gomega.Expect(m.selected).To(gomega.Equal(2))

		press(runes("k"), tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyUp})
		gomega.Expect(m.selected).To(gomega.Equal(0))
	})

	ginkgo.It("filters items through the text input", func() {
		press(tea.KeyMsg{Type: tea.KeyTab}, runes("/"))
		gomega.Expect(m.state).To(gomega.Equal(stateFilter))

		press(runes("m"), runes("a"), runes("i"), runes("n"))
		gomega.Expect(m.visible).To(gomega.HaveLen(1))
		gomega.Expect(m.visible[0].label).To(gomega.Equal("func 2 main"))

		press(tea.KeyMsg{Type: tea.KeyEnter})
		gomega.Expect(m.state).To(gomega.Equal(stateBrowse))
		gomega.Expect(m.View()).To(gomega.ContainSubstring("filter: main"))

		press(runes("/"), tea.KeyMsg{Type: tea.KeyEsc})
		gomega.Expect(m.visible).To(gomega.HaveLen(3))
	})

	ginkgo.It("shows the disassembly of the selected function", func() {
		press(tea.KeyMsg{Type: tea.KeyTab}, runes("j"), runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
		gomega.Expect(m.state).To(gomega.Equal(stateDetail))

		view := m.View()
		gomega.Expect(view).To(gomega.ContainSubstring("(local 2 i64)"))
		gomega.Expect(view).To(gomega.ContainSubstring("call 0"))

		press(tea.KeyMsg{Type: tea.KeyEsc})
		gomega.Expect(m.state).To(gomega.Equal(stateBrowse))
	})

	ginkgo.It("quits on q", func() {
		_, cmd := m.Update(runes("q"))
		gomega.Expect(cmd).NotTo(gomega.BeNil())
		gomega.Expect(cmd()).To(gomega.Equal(tea.Quit()))
	})
})
