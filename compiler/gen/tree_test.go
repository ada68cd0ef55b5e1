package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/fhirx/compiler/load"
)

func modelNames(models []ElementModel) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name()
	}
	return names
}

func TestBuildTree(t *testing.T) {
	t.Run("patient", func(t *testing.T) {
		res := fixtureResource(t, "Patient")
		tree, err := BuildTree(res.ID, res.Elements())
		require.NoError(t, err)

		assert.Equal(t, []string{"active", "name", "gender", "deceased", "contact", "link"}, modelNames(tree.Models))
		require.Len(t, tree.Nested, 2)

		contact := tree.Nested[0]
		assert.Equal(t, "PatientContact", contact.Name)
		assert.Equal(t, TypeBackboneElement, contact.Base)
		assert.Equal(t, "A contact party for the patient.", contact.Description)
		require.Len(t, contact.Properties, 2)
		assert.Equal(t, "name", contact.Properties[0].Name)
		assert.Equal(t, "gender", contact.Properties[1].Name)
		assert.Equal(t, []string{"HumanName", TypeBackboneElement}, contact.Dependencies)

		link := tree.Nested[1]
		assert.Equal(t, "PatientLink", link.Name)
		assert.Equal(t, []string{"PatientContact", TypeBackboneElement}, link.Dependencies)
	})

	t.Run("nested class per backbone", func(t *testing.T) {
		res := fixtureResource(t, "Patient")
		tree, err := BuildTree(res.ID, res.Elements())
		require.NoError(t, err)

		prop := tree.Models[4].Property()
		assert.Equal(t, KindBackbone, prop.Kind)
		assert.Equal(t, []string{"PatientContact"}, prop.Types)
		assert.True(t, prop.Array)

		prop = tree.Models[5].Property()
		assert.Equal(t, []string{"PatientLink"}, prop.Types)
		assert.False(t, prop.Array)

		bb := tree.Models[4].(*Backbone)
		assert.Equal(t, []string{"name", "gender"}, modelNames(bb.Children))
	})

	t.Run("content reference resolves to nested class", func(t *testing.T) {
		res := fixtureResource(t, "Patient")
		tree, err := BuildTree(res.ID, res.Elements())
		require.NoError(t, err)

		link := tree.Nested[1]
		require.NotEmpty(t, link.Properties)
		prop := link.Properties[0]
		assert.Equal(t, "contact", prop.Name)
		assert.Equal(t, KindRecursiveReference, prop.Kind)
		assert.Equal(t, []string{"PatientContact"}, prop.Types)
	})

	t.Run("canonical content reference", func(t *testing.T) {
		res := fixtureResource(t, "Observation")
		tree, err := BuildTree(res.ID, res.Elements())
		require.NoError(t, err)

		require.Len(t, tree.Nested, 2)
		component := tree.Nested[1]
		assert.Equal(t, "ObservationComponent", component.Name)
		require.Len(t, component.Properties, 2)
		assert.Equal(t, []string{"ObservationReferenceRange"}, component.Properties[1].Types)
		assert.True(t, component.Properties[1].Array)
	})

	t.Run("duplicate paths are visited once", func(t *testing.T) {
		tree, err := BuildTree("Patient", []*load.Element{
			el("Patient", 0, "*"),
			el("Patient.active", 0, "1", "boolean"),
			el("Patient.active", 0, "1", "boolean"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"active"}, modelNames(tree.Models))
	})

	t.Run("elements without base are declared", func(t *testing.T) {
		photo := el("Patient.photo", 0, "*", "Attachment")
		photo.Base = nil
		tree, err := BuildTree("Patient", []*load.Element{
			el("Patient", 0, "*"),
			inherited("Patient.id", "Resource.id", "string"),
			photo,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"photo"}, modelNames(tree.Models))
		assert.Equal(t, []string{"Attachment"}, tree.Models[0].Property().Types)
	})

	t.Run("nil elements are skipped", func(t *testing.T) {
		tree, err := BuildTree("Patient", []*load.Element{nil, el("Patient.active", 0, "1", "boolean"), nil})
		require.NoError(t, err)
		assert.Len(t, tree.Models, 1)
	})

	t.Run("nested backbones are depth first", func(t *testing.T) {
		tree, err := BuildTree("Questionnaire", []*load.Element{
			el("Questionnaire.item", 0, "*", "BackboneElement"),
			el("Questionnaire.item.answer", 0, "*", "BackboneElement"),
			el("Questionnaire.item.answer.value", 0, "1", "string"),
			ref("Questionnaire.item.item", "#Questionnaire.item"),
			el("Questionnaire.status", 1, "1", "code"),
		})
		require.NoError(t, err)
		require.Len(t, tree.Nested, 2)
		assert.Equal(t, "QuestionnaireItem", tree.Nested[0].Name)
		assert.Equal(t, "QuestionnaireItemAnswer", tree.Nested[1].Name)
		// Self references are not dependencies of the owner.
		assert.Equal(t, []string{"QuestionnaireItemAnswer", TypeBackboneElement}, tree.Nested[0].Dependencies)
	})
}

func TestBuildTreeErrors(t *testing.T) {
	tests := []struct {
		name     string
		elements []*load.Element
		path     string
		message  string
	}{
		{
			name: "orphan",
			elements: []*load.Element{
				el("Patient.active", 0, "1", "boolean"),
				el("Patient.missing.child", 0, "1", "string"),
			},
			path:    "Patient.missing.child",
			message: "not reachable",
		},
		{
			name: "unresolved reference",
			elements: []*load.Element{
				ref("Patient.link", "#Patient.nowhere"),
			},
			path:    "Patient.link",
			message: "unresolved content reference",
		},
		{
			name: "reference to a plain element",
			elements: []*load.Element{
				el("Patient.active", 0, "1", "boolean"),
				ref("Patient.link", "#Patient.active"),
			},
			path:    "Patient.link",
			message: "does not name a nested structure",
		},
		{
			name: "empty union",
			elements: []*load.Element{
				el("Patient.value[x]", 0, "1"),
			},
			path:    "Patient.value[x]",
			message: "no alternative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTree("Patient", tt.elements)
			require.Error(t, err)
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "Patient", se.Type)
			assert.Equal(t, tt.path, se.Path)
			assert.Contains(t, se.Message, tt.message)
		})
	}

	t.Run("nested name collides with foundational type", func(t *testing.T) {
		_, err := BuildTree("Domain", []*load.Element{
			el("Domain.resource", 0, "1", "BackboneElement"),
		})
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "Domain.resource", se.Path)
		assert.Contains(t, se.Message, "DomainResource")
	})
}

func TestDependencies(t *testing.T) {
	res := fixtureResource(t, "Patient")
	tree, err := BuildTree(res.ID, res.Elements())
	require.NoError(t, err)

	deps := Dependencies("Patient", TypeAbstractModel, tree.Models)
	assert.Equal(t, []string{"HumanName", "PatientContact", "PatientLink"}, deps)

	deps = Dependencies("Patient", "DomainResource", tree.Models)
	assert.Equal(t, []string{"HumanName", "PatientContact", "PatientLink", "DomainResource"}, deps)

	assert.Empty(t, Dependencies("Empty", "", nil))
}

func TestDescriptionEmpty(t *testing.T) {
	assert.True(t, Description{}.Empty())
	assert.False(t, Description{Comment: "c"}.Empty())
}
