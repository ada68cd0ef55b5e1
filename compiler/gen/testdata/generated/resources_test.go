package resources

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, doc string) map[string]any {
	t.Helper()
	var source map[string]any
	if err := json.Unmarshal([]byte(doc), &source); err != nil {
		t.Fatal(err)
	}
	return source
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"Resource", "DomainResource", "Patient", "Observation", "HumanName"} {
		if Lookup(name) == nil {
			t.Errorf("Lookup(%q) = nil", name)
		}
	}
	if Lookup("Unknown") != nil {
		t.Error(`Lookup("Unknown") != nil`)
	}
	if got := Discriminator(map[string]any{"resourceType": "Patient"}); got != "Patient" {
		t.Errorf("Discriminator = %q", got)
	}
}

func TestContainedDispatch(t *testing.T) {
	p := NewPatient(decode(t, `{
		"resourceType": "Patient",
		"contained": [
			{"resourceType": "Observation", "valueString": "ok"},
			{"resourceType": "Unknown", "id": "x"},
			"not a record"
		]
	}`))
	contained := listOf[Model](&p.AbstractModel, "contained")
	if len(contained) != 2 {
		t.Fatalf("len(contained) = %d, want 2", len(contained))
	}
	obs, ok := contained[0].(*Observation)
	if !ok {
		t.Fatalf("contained[0] = %T, want *Observation", contained[0])
	}
	if obs.ResourceType() != "Observation" || obs.GetValue() != "ok" {
		t.Errorf("observation = %s %v", obs.ResourceType(), obs.GetValue())
	}
	res, ok := contained[1].(*Resource)
	if !ok {
		t.Fatalf("contained[1] = %T, want *Resource", contained[1])
	}
	if id := res.GetId(); id == nil || *id != "x" {
		t.Errorf("fallback id = %v", id)
	}
}

func TestArrays(t *testing.T) {
	p := NewPatient(nil).
		AddName(NewHumanName(nil).SetFamily("Doe")).
		AddName(nil).
		AddName(NewHumanName(nil).AddGiven("Jane").AddGiven("Q"))
	names := p.GetNames()
	if len(names) != 2 {
		t.Fatalf("len(names) = %d, want 2", len(names))
	}
	if family := names[0].GetFamily(); family == nil || *family != "Doe" {
		t.Errorf("family = %v", family)
	}
	if got := names[1].GetGivens(); !reflect.DeepEqual(got, []string{"Jane", "Q"}) {
		t.Errorf("givens = %v", got)
	}
	if got := names[1].GetFamily(); got != nil {
		t.Errorf("unset family = %v", *got)
	}
}

func TestUnion(t *testing.T) {
	p := NewPatient(nil).SetDeceasedBoolean(true)
	if got := p.GetDeceased(); got != true {
		t.Errorf("deceased = %v", got)
	}
	p.SetDeceasedDateTime("2020-01-01")
	if got := p.GetDeceased(); got != "2020-01-01" {
		t.Errorf("deceased = %v", got)
	}
	if _, ok := p.ToPlainObject()["deceasedBoolean"]; ok {
		t.Error("deceasedBoolean not cleared")
	}

	o := NewObservation(nil).SetValue(NewQuantity(nil).SetUnit("mg"))
	q, ok := o.GetValue().(*Quantity)
	if !ok {
		t.Fatalf("value = %T, want *Quantity", o.GetValue())
	}
	if unit := q.GetUnit(); unit == nil || *unit != "mg" {
		t.Errorf("unit = %v", unit)
	}
	o.SetValue("text")
	if got := o.GetValue(); got != "text" {
		t.Errorf("value = %v", got)
	}
	if _, ok := o.ToPlainObject()["valueQuantity"]; ok {
		t.Error("valueQuantity not cleared")
	}
	o.SetValue(42)
	if got := o.GetValue(); got != nil {
		t.Errorf("value of an unaccepted type = %v", got)
	}

	c := NewObservationComponent(decode(t, `{"valueInteger": 7}`))
	if got := c.GetValue(); got != float64(7) {
		t.Errorf("component value = %v", got)
	}
}

func TestOptional(t *testing.T) {
	p := NewPatient(nil)
	if got := p.GetActive(); got != nil {
		t.Errorf("active = %v, want nil", *got)
	}
	if got := p.GetGender(); got != "" {
		t.Errorf("gender = %q", got)
	}
	p.SetActive(false)
	if got := p.GetActive(); got == nil || *got {
		t.Errorf("active = %v, want false", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	source := decode(t, `{
		"resourceType": "Patient",
		"active": true,
		"gender": "female",
		"name": [{"family": "Doe", "given": ["Jane"]}],
		"deceasedDateTime": "2020-01-01",
		"contact": [{"gender": "male", "name": {"family": "Roe"}}],
		"link": {"type": "seealso", "contact": {"gender": "other"}},
		"contained": [
			{"resourceType": "Observation", "valueQuantity": {"value": 1.5, "unit": "mg"}}
		]
	}`)
	data, err := json.Marshal(NewPatient(source))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(source, got) {
		t.Errorf("round trip\n got: %s\nwant: %v", data, source)
	}
}
